// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import (
	"extfilter.io/worker/internal/flowtable"
	"extfilter.io/worker/internal/types"
)

// Driver implements Component D: it invokes the DPI engine per packet
// and applies the early-abandon / giveup / guess heuristics and the
// "detection completed" decision of §4.D.
type Driver struct {
	engine Engine
}

// NewDriver wraps an Engine with the classification state machine.
func NewDriver(engine Engine) *Driver {
	return &Driver{engine: engine}
}

// Result is what the worker loop needs to decide whether to route a
// packet to the HTTP or TLS classifier next.
type Result struct {
	// Ignore is true when the packet requires no further action: the
	// flow's detection was already completed (blocked or not) and,
	// per invariant 4, no further interdiction orders are emitted for
	// an already-blocked flow.
	Ignore bool

	// AlreadyBlocked is true when Ignore is true because the flow was
	// already completed *and* blocked (bumps already_detected_blocked,
	// §6).
	AlreadyBlocked bool

	Protocol types.DetectedProtocol
}

// Classify runs the DPI state machine for one packet of rec. l3 is the
// packet's L3 bytes (IP header onward), as the engine's ProcessPacket
// contract expects. Callers must hold no classifier locks here — the
// engine handle is safe for concurrent reads, and rec is exclusively
// owned by the calling worker (§5).
func (d *Driver) Classify(rec *flowtable.FlowRecord, l3 []byte, ipTotalLen int, timestamp uint64, ipProto uint8, srcPort, dstPort uint16) Result {
	if rec.DetectionCompleted {
		if rec.Block {
			return Result{Ignore: true, AlreadyBlocked: true, Protocol: rec.DetectedProtocol}
		}
		return Result{Ignore: true, Protocol: rec.DetectedProtocol}
	}

	st := rec.DPI.(FlowState)

	proto := d.engine.ProcessPacket(st, l3, ipTotalLen, timestamp, ipProto)

	if proto.App == types.ProtoUnknown && d.engine.ShouldGiveUp(st) {
		proto = d.engine.Giveup(st)
		if proto.App == types.ProtoUnknown {
			proto = d.engine.GuessUndetectedProtocol(ipProto, 0, srcPort, 0, dstPort)
		}
	}

	rec.DetectedProtocol = proto
	rec.Bytes += uint64(ipTotalLen)
	rec.Packets++

	// "Detection completed" predicate, preserved verbatim from the
	// source (spec.md §9 Open Question 1): the duplicated
	// "protocol != SSL && protocol != SSL" clause collapses to a
	// single "!= SSL" check, but the remaining compound — requiring
	// protocol == TOR *and* protocol != HTTP in the same conjunction —
	// is kept as written rather than "corrected" to the plausible
	// intended reading ("not in {SSL, HTTP, TOR, DDL}"), per the
	// spec's explicit "preserve verbatim unless the owner confirms
	// intent."
	if proto.App != types.ProtoSSL &&
		proto.App == types.ProtoTOR &&
		proto.Master != types.ProtoHTTP &&
		proto.App != types.ProtoHTTP &&
		proto.App != types.ProtoDDL {
		rec.DetectionCompleted = true
	}

	return Result{Protocol: proto}
}

// IsTLSCandidate reports whether proto routes to the TLS classifier
// (§4.F): master or app protocol is SSL/TLS, or app protocol is TOR.
func IsTLSCandidate(proto types.DetectedProtocol) bool {
	return proto.Master == types.ProtoSSL || proto.App == types.ProtoSSL || proto.App == types.ProtoTOR
}

// IsHTTPCandidate reports whether proto routes to the HTTP classifier
// (§4.E): master or app protocol is HTTP, or app protocol is
// DIRECT_DOWNLOAD_LINK.
func IsHTTPCandidate(proto types.DetectedProtocol) bool {
	return proto.Master == types.ProtoHTTP || proto.App == types.ProtoHTTP || proto.App == types.ProtoDDL
}
