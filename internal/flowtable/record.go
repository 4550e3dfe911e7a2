// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package flowtable implements Component B of the packet worker: two
// fixed-capacity hash tables (v4, v6) backed by a shared, bounded pool
// of flow records. It is grounded on the teacher's
// internal/ebpf/flow.Manager (map-backed flow cache with a cleanup
// routine) generalized to the source worker.cpp's two-hash-table design:
// a hash table's value slot holds the owning *FlowRecord directly
// (the redesign note in spec.md §9 — "a safer reimplementation stores
// the owning record directly in the table's value slot" — rather than
// an index into a side array of pointers, which is an artifact of the
// DPDK rte_hash API the source was built against).
package flowtable

import (
	"extfilter.io/worker/internal/types"
)

// DPIState is an opaque handle owned exclusively by one FlowRecord. It
// is released exactly once, on eviction or shutdown, never on rebirth
// (invariant 2).
type DPIState interface{}

// Allocator constructs and releases the DPI-side per-flow structures
// (the engine's per-flow state plus the two per-endpoint identity
// structures, §3). The DPI engine itself is an external collaborator
// (§1); flowtable only needs to create/destroy its opaque per-flow
// handle at the right points in the flow lifecycle.
type Allocator interface {
	New() (DPIState, error)
	Release(DPIState)
}

// FlowRecord is one active TCP connection, per §3. A record is owned
// exclusively by the worker (core) that created it — flowtable itself
// applies no cross-goroutine synchronization to a single record, by
// design (§5, per-core ownership).
type FlowRecord struct {
	KeyV4 types.FlowKeyV4
	KeyV6 types.FlowKeyV6

	IPVersion int

	LastSeen uint64 // monotonic tick count (invariant 3: non-decreasing)

	Packets uint64
	Bytes   uint64

	CliToSrvDirection bool

	DetectionCompleted bool
	Block               bool // once true, stays true (invariant 4)

	DetectedProtocol types.DetectedProtocol

	DPI DPIState

	slot    int // internal slot index into the owning Table, set by Insert; not cleared on return to the pool
	poolIdx int // index into the owning Pool's backing array
}

// reset zero-initializes a record for reuse from the pool, preserving
// only the slice it occupies in the pool's backing array.
func (r *FlowRecord) reset() {
	r.KeyV4 = types.FlowKeyV4{}
	r.KeyV6 = types.FlowKeyV6{}
	r.IPVersion = 0
	r.LastSeen = 0
	r.Packets = 0
	r.Bytes = 0
	r.CliToSrvDirection = false
	r.DetectionCompleted = false
	r.Block = false
	r.DetectedProtocol = types.DetectedProtocol{}
	r.DPI = nil
}
