// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package types

import "net/netip"

// InterdictionOrder is the contract handed to the sender task (an
// external collaborator, §1/§6). The sender crafts and transmits the
// actual RST or redirect packet; the worker only describes what to send.
type InterdictionOrder struct {
	SrcPort uint16
	DstPort uint16
	SrcIP   netip.Addr
	DstIP   netip.Addr

	// Ack and Seq are the numeric TCP acknowledgment and sequence
	// numbers (already converted from network byte order by the
	// decoder) taken from, or derived from, the triggering TCP segment.
	// RST orders carry the incoming Seq unchanged; redirect orders carry
	// seq + payload_len, the redirect SEQ law expressed on host-order
	// values.
	Ack uint32
	Seq uint32

	PSHFlag bool

	// ExtraParam is the add_param appended to a redirect URL (§4.E),
	// empty for RST orders.
	ExtraParam string

	// IsRST distinguishes an RST order from an HTTP redirect order.
	IsRST bool
}
