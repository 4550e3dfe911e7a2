// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic reads CLOCK_MONOTONIC via golang.org/x/sys/unix, the same
// syscall the reference repo's socket filter uses to approximate
// bpf_ktime_get_ns().
type Monotonic struct{}

// NewMonotonic builds a Source backed by CLOCK_MONOTONIC.
func NewMonotonic() Monotonic { return Monotonic{} }

// NowNanos implements Source.
func (Monotonic) NowNanos() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return uint64(ts.Sec)*1e9 + uint64(ts.Nsec)
}
