// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package gate implements Component C, the interdiction gate: a
// single ip_port_map lookup against the packet's destination that
// runs before a flow is even looked up (§4.C). A match emits an RST
// order for the packet's addresses and ports and tells the worker to
// stop processing this packet — no flow is created, no DPI runs.
package gate

import (
	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/types"
)

// Result is what the worker loop needs after a gate check.
type Result struct {
	// Matched is true when the destination IP:port pair is listed and
	// an order was produced.
	Matched bool

	// Order is valid only when Matched is true.
	Order types.InterdictionOrder

	// Skipped is true when the map's lock was contended: the worker
	// must let the packet proceed to flow lookup unchecked for this
	// one packet (try-lock-and-skip, §5).
	Skipped bool
}

// Check runs the gate against dp, a decoded, accepted packet.
func Check(m *ruleset.IPPortMap, dp types.DecodedPacket) Result {
	matched, locked := m.TryMatch(dp.DstIP, dp.DstPort)
	if !locked {
		return Result{Skipped: true}
	}
	if !matched {
		return Result{}
	}

	return Result{
		Matched: true,
		Order: types.InterdictionOrder{
			SrcPort: dp.SrcPort,
			DstPort: dp.DstPort,
			SrcIP:   dp.SrcIP,
			DstIP:   dp.DstIP,
			Ack:     dp.Ack,
			Seq:     dp.Seq,
			IsRST:   true,
		},
	}
}
