// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dpi defines the contract with the DPI engine (an external
// collaborator per spec.md §1 — "treated as a black box with a stable
// contract") and implements Component D, the DPI Driver, which invokes
// that contract per packet and applies the early-abandon / giveup /
// guess heuristics around it.
package dpi

import (
	"extfilter.io/worker/internal/types"
)

// HTTPInfo is the subset of the engine's surfaced HTTP request state
// the classifier needs (§4.E).
type HTTPInfo struct {
	Method string // "GET", "POST", "HEAD", or "" if no request seen yet
	URL    string
}

// SSLInfo is the subset of the engine's surfaced TLS state the
// classifier needs (§4.F).
type SSLInfo struct {
	SeenClientCert    bool
	ClientCertificate string // SNI or equivalent client identifier
}

// FlowState is the engine's per-flow state, opaque to everyone except
// the engine itself and this package. It satisfies flowtable.DPIState.
type FlowState interface {
	// HTTP returns the flow's currently surfaced HTTP request info.
	HTTP() HTTPInfo
	// SSL returns the flow's currently surfaced TLS info.
	SSL() SSLInfo
}

// Engine is the stable contract with the DPI engine (§4.D, §6).
// Implementations must be safe for concurrent use by multiple workers
// reading through a shared handle; each flow's FlowState is private to
// the worker that owns the flow.
type Engine interface {
	// NewFlowState allocates a flow's private engine-side state (the
	// "ndpi_flow" plus the two per-endpoint identity structures, §3).
	NewFlowState() (FlowState, error)

	// ReleaseFlowState frees state allocated by NewFlowState. Called
	// exactly once per flow, on eviction or shutdown (invariant 2).
	ReleaseFlowState(FlowState)

	// ProcessPacket feeds one packet's L3 bytes into the engine for
	// flow st, returning a tentative (possibly still UNKNOWN) protocol
	// pair.
	ProcessPacket(st FlowState, l3 []byte, ipTotalLen int, timestamp uint64, ipProto uint8) types.DetectedProtocol

	// Giveup asks the engine for its best-effort protocol guess when
	// classification has stalled (the "give up" condition, §4.D).
	Giveup(st FlowState) types.DetectedProtocol

	// GuessUndetectedProtocol asks the engine to guess from the
	// 5-tuple alone. The positional argument shape
	// (ipProto, 0, srcPort, 0, dstPort) is preserved verbatim from the
	// source call `ndpi_guess_undetected_protocol(ndpi_struct,
	// ip_protocol, 0, tcp_src_port, 0, tcp_dst_port)` — see spec.md §9
	// Open Question 3; it is reproduced as-is rather than "fixed" to
	// pass IP addresses, since the spec asks reimplementers to flag
	// rather than silently correct it.
	GuessUndetectedProtocol(ipProto uint8, zero1 uint32, srcPort uint16, zero2 uint32, dstPort uint16) types.DetectedProtocol

	// ShouldGiveUp reports whether the engine's own give-up heuristic
	// has triggered for st (e.g. too many packets inspected with no
	// classification).
	ShouldGiveUp(st FlowState) bool
}
