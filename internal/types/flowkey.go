// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package types holds the data model shared across the packet worker:
// flow keys, decoded packets, protocol verdicts and interdiction orders.
// It corresponds to the source's flow.h key structs, generalized from
// raw C struct layouts to comparable Go value types usable directly as
// map keys.
package types

import "net/netip"

// FlowKeyV4 is the ordered 5-tuple identifying an IPv4 TCP flow. Hash
// equality is structural: the first packet observed defines the
// client->server direction, there is no canonicalization.
type FlowKeyV4 struct {
	SrcAddr uint32
	DstAddr uint32
	SrcPort uint16
	DstPort uint16
	Proto   uint8
}

// FlowKeyV6 is the ordered 5-tuple identifying an IPv6 TCP flow.
type FlowKeyV6 struct {
	SrcAddr [16]byte
	DstAddr [16]byte
	SrcPort uint16
	DstPort uint16
	Proto   uint8
}

// MakeFlowKeyV4 builds a v4 key from decoded packet fields.
func MakeFlowKeyV4(src, dst netip.Addr, srcPort, dstPort uint16, proto uint8) FlowKeyV4 {
	s := src.As4()
	d := dst.As4()
	return FlowKeyV4{
		SrcAddr: be32(s),
		DstAddr: be32(d),
		SrcPort: srcPort,
		DstPort: dstPort,
		Proto:   proto,
	}
}

// MakeFlowKeyV6 builds a v6 key from decoded packet fields.
func MakeFlowKeyV6(src, dst netip.Addr, srcPort, dstPort uint16, proto uint8) FlowKeyV6 {
	return FlowKeyV6{
		SrcAddr: src.As16(),
		DstAddr: dst.As16(),
		SrcPort: srcPort,
		DstPort: dstPort,
		Proto:   proto,
	}
}

func be32(b [4]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ProtocolID identifies a master/app protocol pair reported by the DPI
// engine. The concrete numeric space belongs to the engine's contract;
// the worker only cares about a handful of well-known values (below).
type ProtocolID uint16

// Well-known protocol ids the DPI driver branches on. Values mirror the
// nDPI protocol enumeration referenced by the original source so the
// compound predicates in the DPI driver and classifiers read the same
// way worker.cpp does.
const (
	ProtoUnknown ProtocolID = 0
	ProtoHTTP    ProtocolID = 7
	ProtoSSL     ProtocolID = 91
	ProtoDDL     ProtocolID = 123 // DIRECT_DOWNLOAD_LINK
	ProtoTOR     ProtocolID = 185
)

// DetectedProtocol is the (master, app) protocol pair the DPI engine
// returns from ProcessPacket/Giveup/GuessUndetectedProtocol.
type DetectedProtocol struct {
	Master ProtocolID
	App    ProtocolID
}
