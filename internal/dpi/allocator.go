// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dpi

import "extfilter.io/worker/internal/flowtable"

// allocator adapts an Engine to flowtable.Allocator, so flow birth and
// eviction can create/release engine-side state without flowtable
// importing this package (it would otherwise be a circular import:
// dpi.Driver needs *flowtable.FlowRecord).
type allocator struct {
	engine Engine
}

// NewAllocator wraps engine as a flowtable.Allocator.
func NewAllocator(engine Engine) flowtable.Allocator {
	return &allocator{engine: engine}
}

func (a *allocator) New() (flowtable.DPIState, error) {
	return a.engine.NewFlowState()
}

func (a *allocator) Release(st flowtable.DPIState) {
	if st == nil {
		return
	}
	a.engine.ReleaseFlowState(st.(FlowState))
}
