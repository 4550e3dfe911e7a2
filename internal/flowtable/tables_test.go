// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowtable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extfilter.io/worker/internal/logging"
	"extfilter.io/worker/internal/types"
)

// countingAllocator is a flowtable.Allocator that never fails, for
// tests that only care about table/pool behavior.
type countingAllocator struct {
	news     int
	releases int
}

func (a *countingAllocator) New() (DPIState, error) {
	a.news++
	return a.news, nil
}

func (a *countingAllocator) Release(DPIState) {
	a.releases++
}

// failingAllocator fails every New call, for testing the DPI
// allocation-failure path in birth.
type failingAllocator struct{}

func (failingAllocator) New() (DPIState, error) { return nil, fmt.Errorf("no memory") }
func (failingAllocator) Release(DPIState)       {}

func newTestTables(t *testing.T, hashCapacity int, alloc Allocator) *Tables {
	t.Helper()
	tables, err := NewTables(hashCapacity, alloc, logging.New(logging.DefaultConfig()))
	require.NoError(t, err)
	return tables
}

func v4Key(n byte) types.FlowKeyV4 {
	return types.FlowKeyV4{SrcAddr: uint32(n), DstAddr: 1, SrcPort: 1000 + uint16(n), DstPort: 80, Proto: 6}
}

func v6Key(n byte) types.FlowKeyV6 {
	k := types.FlowKeyV6{SrcPort: 1000 + uint16(n), DstPort: 443, Proto: 6}
	k.SrcAddr[0] = n
	k.DstAddr[0] = 1
	return k
}

func TestGetOrCreateV4_BirthsThenReuses(t *testing.T) {
	alloc := &countingAllocator{}
	tables := newTestTables(t, 4, alloc)
	key := v4Key(1)

	rec := tables.GetOrCreateV4(key, 100)
	require.NotNil(t, rec)
	assert.Equal(t, 1, alloc.news)
	assert.True(t, rec.CliToSrvDirection)
	assert.False(t, rec.Block)

	again := tables.GetOrCreateV4(key, 200)
	assert.Same(t, rec, again)
	assert.Equal(t, 1, alloc.news, "a second lookup of the same key must not birth a new flow")

	v4, v6, total := tables.Counts()
	assert.Equal(t, 1, v4)
	assert.Zero(t, v6)
	assert.Equal(t, 1, total)
}

func TestGetOrCreateV4_PoolExhaustionReturnsNil(t *testing.T) {
	// Invariant 5 sizes the shared pool at exactly 2*H, the worst case
	// of both per-protocol tables being simultaneously full. Fill both
	// tables to capacity H, then the pool is exhausted for any further
	// birth regardless of which table's key is being inserted.
	const h = 2
	alloc := &countingAllocator{}
	tables := newTestTables(t, h, alloc)

	for i := byte(0); i < h; i++ {
		require.NotNil(t, tables.GetOrCreateV4(v4Key(i), 1))
		require.NotNil(t, tables.GetOrCreateV6(v6Key(i), 1))
	}
	assert.Equal(t, h*2, tables.Pool.InUse())

	rec := tables.GetOrCreateV4(v4Key(h), 1)
	assert.Nil(t, rec, "pool must be exhausted once both tables are at capacity")
}

func TestGetOrCreateV4_DPIAllocationFailureReleasesPoolSlot(t *testing.T) {
	tables := newTestTables(t, 4, failingAllocator{})
	before := tables.Pool.InUse()

	rec := tables.GetOrCreateV4(v4Key(1), 1)
	assert.Nil(t, rec)
	assert.Equal(t, before, tables.Pool.InUse(), "a failed DPI allocation must return the pool slot it borrowed")
}
