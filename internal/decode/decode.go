// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package decode implements Component A, the packet decoder: Ethernet
// (with any number of 802.1Q VLAN tags or MPLS label-stack entries in
// between) down through IPv4/IPv6 and TCP, producing a
// types.DecodedPacket or a DropReason explaining why the packet is not
// a candidate for inspection (§4.A).
//
// gopacket already chains VLAN and MPLS decoding transparently — a
// Dot1Q layer's next-layer is whatever EtherType it carries, and an
// MPLS layer peeks the first payload nibble to pick IPv4 or IPv6 once
// the bottom-of-stack bit is set — so Decode only needs to look up the
// terminal IP and TCP layers rather than walk the stack by hand, the
// same pattern the reference repo uses for its own layer lookups.
package decode

import (
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"extfilter.io/worker/internal/types"
)

// opts is shared across every call: Lazy defers decoding of layers
// until they're asked for, NoCopy avoids copying the wire buffer since
// a DecodedPacket's Payload is read and handed off before the buffer
// is recycled (§5's per-core, single-owner buffer discipline).
var opts = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

// Decode parses a raw Ethernet frame. buf is a wire-order byte slice
// owned by the caller for the duration of this call.
func Decode(buf []byte) types.DecodedPacket {
	packet := gopacket.NewPacket(buf, layers.LayerTypeEthernet, opts)

	ipv4 := packet.Layer(layers.LayerTypeIPv4)
	ipv6 := packet.Layer(layers.LayerTypeIPv6)

	switch {
	case ipv4 != nil:
		return decodeIPv4(packet, ipv4.(*layers.IPv4))
	case ipv6 != nil:
		return decodeIPv6(packet, ipv6.(*layers.IPv6))
	default:
		return types.DecodedPacket{Drop: types.DropNotIP}
	}
}

func decodeIPv4(packet gopacket.Packet, ip *layers.IPv4) types.DecodedPacket {
	if ip.Length < 20 {
		return types.DecodedPacket{Drop: types.DropIPv4Short}
	}
	if ip.Flags&layers.IPv4MoreFragments != 0 || ip.FragOffset != 0 {
		return types.DecodedPacket{Drop: types.DropIPv4Fragment}
	}
	if ip.Protocol != layers.IPProtocolTCP {
		return types.DecodedPacket{Drop: types.DropNotTCP}
	}

	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return types.DecodedPacket{Drop: types.DropMalformed}
	}
	tcp := tcpLayer.(*layers.TCP)

	srcAddr, ok1 := netipFromIP(ip.SrcIP)
	dstAddr, ok2 := netipFromIP(ip.DstIP)
	if !ok1 || !ok2 {
		return types.DecodedPacket{Drop: types.DropMalformed}
	}

	dp := types.DecodedPacket{
		IPVersion:   4,
		SrcIP:       srcAddr,
		DstIP:       dstAddr,
		SrcPort:     uint16(tcp.SrcPort),
		DstPort:     uint16(tcp.DstPort),
		IPTotalLen:  int(ip.Length),
		IPHeaderLen: int(ip.IHL) * 4,
		Seq:         tcp.Seq,
		Ack:         tcp.Ack,
		Payload:     tcp.Payload,
	}
	dp.TCPHeaderLen = int(tcp.DataOffset) * 4
	if dp.IPHeaderLen+dp.TCPHeaderLen >= dp.IPTotalLen {
		return types.DecodedPacket{Drop: types.DropNoPayload}
	}
	dp.L3 = l3Bytes(ip.LayerContents(), tcp.LayerContents(), tcp.Payload)
	return dp
}

func decodeIPv6(packet gopacket.Packet, ip *layers.IPv6) types.DecodedPacket {
	if packet.Layer(layers.LayerTypeIPv6Fragment) != nil {
		return types.DecodedPacket{Drop: types.DropIPv6Fragment}
	}
	if ip.NextHeader != layers.IPProtocolTCP {
		// A non-fragment extension header chain that doesn't end in
		// TCP is treated the same as "not TCP" — this worker never
		// inspects UDP/ICMPv6/etc regardless of how it's wrapped.
		if packet.Layer(layers.LayerTypeTCP) == nil {
			return types.DecodedPacket{Drop: types.DropNotTCP}
		}
	}

	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return types.DecodedPacket{Drop: types.DropNotTCP}
	}
	tcp := tcpLayer.(*layers.TCP)

	srcAddr, ok1 := netipFromIP(ip.SrcIP)
	dstAddr, ok2 := netipFromIP(ip.DstIP)
	if !ok1 || !ok2 {
		return types.DecodedPacket{Drop: types.DropMalformed}
	}

	ipTotalLen := int(ip.Length) + 40
	dp := types.DecodedPacket{
		IPVersion:   6,
		SrcIP:       srcAddr,
		DstIP:       dstAddr,
		SrcPort:     uint16(tcp.SrcPort),
		DstPort:     uint16(tcp.DstPort),
		IPTotalLen:  ipTotalLen,
		IPHeaderLen: 40,
		Seq:         tcp.Seq,
		Ack:         tcp.Ack,
		Payload:     tcp.Payload,
	}
	dp.TCPHeaderLen = int(tcp.DataOffset) * 4
	if len(dp.Payload) == 0 {
		return types.DecodedPacket{Drop: types.DropNoPayload}
	}
	dp.L3 = l3Bytes(ip.LayerContents(), tcp.LayerContents(), tcp.Payload)
	return dp
}

// l3Bytes reassembles the IP-header-onward slice the DPI engine's
// ProcessPacket contract expects. gopacket's NoCopy layers reference
// disjoint (non-contiguous, once extension headers are involved)
// windows into the original buffer, so this is a single small copy
// per packet that reaches DPI rather than pointer arithmetic against
// the original frame.
func l3Bytes(ipHeader, tcpHeader, payload []byte) []byte {
	out := make([]byte, 0, len(ipHeader)+len(tcpHeader)+len(payload))
	out = append(out, ipHeader...)
	out = append(out, tcpHeader...)
	out = append(out, payload...)
	return out
}
