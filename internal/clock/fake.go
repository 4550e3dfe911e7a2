// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

import "sync/atomic"

// Fake is a deterministic, test-controlled Source.
type Fake struct {
	nanos atomic.Uint64
}

// NewFake builds a Fake starting at startNanos.
func NewFake(startNanos uint64) *Fake {
	f := &Fake{}
	f.nanos.Store(startNanos)
	return f
}

// NowNanos implements Source.
func (f *Fake) NowNanos() uint64 { return f.nanos.Load() }

// Advance moves the fake clock forward by delta nanoseconds.
func (f *Fake) Advance(delta uint64) { f.nanos.Add(delta) }

// Set pins the fake clock to an absolute value.
func (f *Fake) Set(nanos uint64) { f.nanos.Store(nanos) }
