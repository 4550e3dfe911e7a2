// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package types

import "net/netip"

// DropReason enumerates why the Packet Decoder rejected a buffer. The
// names mirror the C source's drop taxonomy (§4.A) one for one.
type DropReason int

const (
	// DropNone means the packet was not dropped.
	DropNone DropReason = iota
	DropNotIP
	DropIPv4Short
	DropIPv4Fragment
	DropIPv6Fragment
	DropNotTCP
	DropNoPayload
	DropMalformed
)

func (r DropReason) String() string {
	switch r {
	case DropNone:
		return "none"
	case DropNotIP:
		return "not_ip"
	case DropIPv4Short:
		return "ipv4_short"
	case DropIPv4Fragment:
		return "ipv4_fragment"
	case DropIPv6Fragment:
		return "ipv6_fragment"
	case DropNotTCP:
		return "not_tcp"
	case DropNoPayload:
		return "no_payload"
	case DropMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodedPacket is the output of the Packet Decoder (§4.A): a TCP
// segment with its 5-tuple and payload slice resolved, or a drop
// verdict carried in Drop.
type DecodedPacket struct {
	Drop DropReason

	IPVersion int // 4 or 6

	SrcIP   netip.Addr
	DstIP   netip.Addr
	SrcPort uint16
	DstPort uint16

	IPTotalLen   int
	IPHeaderLen  int
	TCPHeaderLen int

	Seq uint32
	Ack uint32

	// Payload is the TCP segment payload. It aliases the underlying
	// packet buffer; callers must not retain it past the buffer's
	// lifetime.
	Payload []byte

	// L3 is the IP header onward (header + TCP header + payload,
	// IPTotalLen bytes), the exact slice shape the DPI engine's
	// ProcessPacket contract expects (§4.D, §6).
	L3 []byte
}

// Accepted reports whether the decoder produced a usable TCP segment.
func (p *DecodedPacket) Accepted() bool {
	return p.Drop == DropNone
}

// PayloadLen returns the payload length, used by the redirect SEQ law.
func (p *DecodedPacket) PayloadLen() int {
	return len(p.Payload)
}
