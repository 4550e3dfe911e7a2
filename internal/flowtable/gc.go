// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowtable

// Component G: the garbage collector. It is not a separate object in
// the source (it is inline in WorkerThread::run); here it is a method
// on Tables because it needs direct access to both hash tables' slot
// arrays and the shared pool, the same collaborators GetOrCreate uses.

// SweepResult summarizes one GC tick, for stats and tests.
type SweepResult struct {
	EvictedV4    int
	EvictedV6    int
	DeleteErrors int // slot had a record but the key delete reported absent (§7)
}

// Sweep inspects budget slots starting at the GC cursor, evicting any
// record idle for at least idleTicks relative to nowTicks, then
// advances the cursor by budget and wraps modulo the table capacity
// via the bitmask (§4.G, §9: capacity must be a power of two).
//
// The cursor advances by budget unconditionally, even when fewer than
// budget slots were occupied — there is no carry-over accounting
// across ticks, matching the source's iter_flows bookkeeping exactly
// (worker.cpp's loop increments z and iter_flows together regardless
// of how many slots were actually occupied).
func (t *Tables) Sweep(budget int, nowTicks, idleTicks uint64) SweepResult {
	var res SweepResult
	n := t.V4.Cap() // v4 and v6 share capacity H
	mask := n - 1

	for z := 0; z < budget; z++ {
		i := t.gcCursor & mask

		if rec := t.V4.SlotAt(i); rec != nil && nowTicks-rec.LastSeen >= idleTicks {
			key := rec.KeyV4
			if t.V4.DeleteSlot(i, key) {
				t.evict(rec)
				res.EvictedV4++
			} else {
				res.DeleteErrors++
			}
		}
		if rec := t.V6.SlotAt(i); rec != nil && nowTicks-rec.LastSeen >= idleTicks {
			key := rec.KeyV6
			if t.V6.DeleteSlot(i, key) {
				t.evict(rec)
				res.EvictedV6++
			} else {
				res.DeleteErrors++
			}
		}

		t.gcCursor++
	}
	t.gcCursor &= mask

	return res
}

// GCBudget computes gc_budget from §4.G:
//
//	gc_budget = ceil(H / (allGCIntervalSeconds * 1e6) * gcIntervalMicros)
//
// so that, over allGCIntervalSeconds, every one of the H slots in each
// table is visited at least once regardless of how many ticks the
// worker loop runs in that window.
func GCBudget(hashCapacity int, gcIntervalMicros, allGCIntervalSeconds float64) int {
	budget := (float64(hashCapacity) / (allGCIntervalSeconds * 1_000_000)) * gcIntervalMicros
	b := int(budget)
	if float64(b) < budget {
		b++
	}
	if b < 1 {
		b = 1
	}
	if b > hashCapacity {
		b = hashCapacity
	}
	return b
}
