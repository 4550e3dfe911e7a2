// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decode

import "net/netip"

// netipFromIP converts a gopacket-decoded net.IP (always 4 or 16 raw
// bytes, never the textual form) to netip.Addr without going through
// string parsing.
func netipFromIP(ip []byte) (netip.Addr, bool) {
	switch len(ip) {
	case 4:
		return netip.AddrFrom4([4]byte(ip)), true
	case 16:
		return netip.AddrFrom16([16]byte(ip)), true
	default:
		return netip.Addr{}, false
	}
}
