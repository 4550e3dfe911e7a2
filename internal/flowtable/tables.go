// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowtable

import (
	"extfilter.io/worker/internal/logging"
	"extfilter.io/worker/internal/types"
)

// Tables owns the v4 and v6 hash tables plus their shared record pool
// for one worker (one per core, §5). It is the Go counterpart of
// worker.cpp's WorkerThread::ipv4_flows/ipv6_flows/flows_pool trio.
type Tables struct {
	V4 *Table[types.FlowKeyV4]
	V6 *Table[types.FlowKeyV6]

	Pool *Pool

	alloc Allocator
	log   *logging.Logger

	// gcCursor is the GC sweep position, shared across v4/v6 since both
	// tables share capacity H (§4.G).
	gcCursor int
}

// NewTables builds the per-worker flow tables. hashCapacity is H for
// each of the v4 and v6 tables (must be a power of two, §4.G); the
// shared pool is sized 2*H per invariant 5.
func NewTables(hashCapacity int, alloc Allocator, log *logging.Logger) (*Tables, error) {
	v4, err := NewTable[types.FlowKeyV4](hashCapacity)
	if err != nil {
		return nil, err
	}
	v6, err := NewTable[types.FlowKeyV6](hashCapacity)
	if err != nil {
		return nil, err
	}
	pool, err := NewPool(hashCapacity * 2)
	if err != nil {
		return nil, err
	}
	return &Tables{V4: v4, V6: v6, Pool: pool, alloc: alloc, log: log}, nil
}

// GetOrCreateV4 returns the existing flow for key, or births one.
// Mirrors WorkerThread::getFlow's ipv4 branch.
func (t *Tables) GetOrCreateV4(key types.FlowKeyV4, now uint64) *FlowRecord {
	if rec := t.V4.Lookup(key); rec != nil {
		return rec
	}
	return t.birth(key, types.FlowKeyV6{}, 4, now)
}

// GetOrCreateV6 returns the existing flow for key, or births one.
func (t *Tables) GetOrCreateV6(key types.FlowKeyV6, now uint64) *FlowRecord {
	if rec := t.V6.Lookup(key); rec != nil {
		return rec
	}
	return t.birth(types.FlowKeyV4{}, key, 6, now)
}

func (t *Tables) birth(k4 types.FlowKeyV4, k6 types.FlowKeyV6, ipVersion int, now uint64) *FlowRecord {
	rec, err := t.Pool.Get()
	if err != nil {
		t.log.Error("not enough memory for the flow in the flows_pool", "ip_version", ipVersion)
		return nil
	}

	rec.IPVersion = ipVersion
	rec.LastSeen = now
	rec.CliToSrvDirection = true
	rec.Block = false
	if ipVersion == 4 {
		rec.KeyV4 = k4
	} else {
		rec.KeyV6 = k6
	}

	dpiState, err := t.alloc.New()
	if err != nil {
		t.log.Error("not enough memory for the flow", "error", err)
		t.Pool.Put(rec)
		return nil
	}
	rec.DPI = dpiState

	if ipVersion == 4 {
		if err := t.V4.Insert(k4, rec); err != nil {
			t.alloc.Release(rec.DPI)
			t.Pool.Put(rec)
			t.log.Error("there is no space in the ipv4 flow hash")
			return nil
		}
	} else {
		if err := t.V6.Insert(k6, rec); err != nil {
			t.alloc.Release(rec.DPI)
			t.Pool.Put(rec)
			t.log.Error("there is no space in the ipv6 flow hash")
			return nil
		}
	}

	return rec
}

// evict releases rec's DPI state and returns it to the pool. It does
// not touch the hash tables: the garbage collector removes rec's key
// and slot with DeleteSlot before calling it (§4.B evict, §4.G).
func (t *Tables) evict(rec *FlowRecord) {
	t.alloc.Release(rec.DPI)
	rec.DPI = nil
	t.Pool.Put(rec)
}

// Counts returns the live flow counts, matching the ndpi_*_flows_count
// gauges in §6.
func (t *Tables) Counts() (v4, v6, total int) {
	v4 = t.V4.Len()
	v6 = t.V6.Len()
	return v4, v6, v4 + v6
}
