// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package clock provides the monotonic tick source the worker stamps
// every packet and flow record with (§4.A "timestamp", §4.G's
// last_seen/idle comparisons). The source nDPI worker reads the DPDK
// TSC directly; on a general-purpose Linux host the nearest
// equivalent is CLOCK_MONOTONIC, read the same way the reference
// repo's eBPF socket filter approximates bpf_ktime_get_ns().
package clock

// Source yields monotonically increasing nanosecond ticks.
type Source interface {
	NowNanos() uint64
}
