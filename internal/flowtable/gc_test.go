// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_EvictsOnlyIdleFlows(t *testing.T) {
	alloc := &countingAllocator{}
	tables := newTestTables(t, 4, alloc)

	fresh := tables.GetOrCreateV4(v4Key(1), 100)
	stale := tables.GetOrCreateV4(v4Key(2), 0)
	require.NotNil(t, fresh)
	require.NotNil(t, stale)

	res := tables.Sweep(4, 100, 50)

	assert.Equal(t, 1, res.EvictedV4)
	assert.Zero(t, res.EvictedV6)
	assert.Zero(t, res.DeleteErrors)
	assert.Equal(t, 1, alloc.releases)

	v4, _, _ := tables.Counts()
	assert.Equal(t, 1, v4)
	assert.Nil(t, tables.V4.Lookup(v4Key(2)))
	assert.NotNil(t, tables.V4.Lookup(v4Key(1)))
}

func TestSweep_EvictedSlotReturnsToPool(t *testing.T) {
	alloc := &countingAllocator{}
	tables := newTestTables(t, 4, alloc)
	tables.GetOrCreateV4(v4Key(1), 0)
	before := tables.Pool.InUse()

	tables.Sweep(4, 1000, 10)

	assert.Equal(t, before-1, tables.Pool.InUse())
}

func TestSweep_CursorWrapsAcrossMultipleTicksWithoutPanicking(t *testing.T) {
	// Regression test: the cursor must be masked into range on every
	// slot read, not only once after the loop, or a budget that
	// crosses the wrap boundary over several ticks indexes past the
	// end of the slot array.
	const h = 4
	tables := newTestTables(t, h, &countingAllocator{})
	for i := byte(0); i < h; i++ {
		require.NotNil(t, tables.GetOrCreateV4(v4Key(i), 0))
	}

	assert.NotPanics(t, func() {
		for tick := 0; tick < 10; tick++ {
			tables.Sweep(3, 1000, 10)
		}
	})

	v4, _, _ := tables.Counts()
	assert.Zero(t, v4, "every idle flow should eventually be swept across enough ticks")
}

func TestSweep_CursorAdvancesByBudgetEvenOverEmptySlots(t *testing.T) {
	tables := newTestTables(t, 8, &countingAllocator{})

	tables.Sweep(5, 1000, 10)
	assert.Equal(t, 5, tables.gcCursor, "cursor advances by budget unconditionally, per worker.cpp's iter_flows bookkeeping")
}

func TestGCBudget(t *testing.T) {
	tests := []struct {
		name                 string
		hashCapacity         int
		gcIntervalMicros     float64
		allGCIntervalSeconds float64
		want                 int
	}{
		{"sweeps whole table once over the target window", 4096, 1000, 4.096, 1},
		{"rounds up a fractional budget", 1000, 100_000, 3, 34},
		{"never goes below one", 10, 1, 1_000_000, 1},
		{"never exceeds table capacity", 10, 5_000_000, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GCBudget(tt.hashCapacity, tt.gcIntervalMicros, tt.allGCIntervalSeconds)
			assert.Equal(t, tt.want, got)
		})
	}
}
