// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package worker implements Component H, the worker loop: pull a
// buffer from the distributor, timestamp it, run decode → gate → flow
// lookup → DPI → HTTP/TLS classification, recycle the buffer, and
// periodically sweep idle flows (§4.H). One Worker is pinned to one
// CPU core; nothing here is safe to share across goroutines except
// the read-mostly ruleset.BlocklistConfig and the DPI engine handle,
// both designed for concurrent access.
package worker

import (
	"context"
	"sync/atomic"

	"extfilter.io/worker/internal/clock"
	"extfilter.io/worker/internal/decode"
	"extfilter.io/worker/internal/distributor"
	"extfilter.io/worker/internal/dpi"
	"extfilter.io/worker/internal/flowtable"
	"extfilter.io/worker/internal/gate"
	"extfilter.io/worker/internal/httpclassifier"
	"extfilter.io/worker/internal/logging"
	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/sender"
	"extfilter.io/worker/internal/stats"
	"extfilter.io/worker/internal/tlsclassifier"
	"extfilter.io/worker/internal/types"
)

// Config is one worker's tuning knobs, all sourced from the shared
// configuration object rather than hard-coded (§6's constants:
// FLOW_IDLE_TIME, EXTF_GC_INTERVAL, EXTF_ALL_GC_INTERVAL).
type Config struct {
	ID string

	// HashCapacity is H, the per-table flow hash capacity (power of
	// two, §4.B/§4.G).
	HashCapacity int

	// FlowIdleNanos is FLOW_IDLE_TIME converted to the clock's tick
	// unit (nanoseconds here, the TSC cycle count in the source).
	FlowIdleNanos uint64

	// GCIntervalNanos is EXTF_GC_INTERVAL converted to nanoseconds:
	// the worker runs one sweep tick at most this often.
	GCIntervalNanos uint64

	// GCBudget is the number of slots swept per tick; computed once at
	// startup via flowtable.GCBudget (§4.G) and passed in rather than
	// recomputed per tick.
	GCBudget int

	// TCPProto is the IP protocol number stamped into flow keys (6).
	TCPProto uint8
}

// Worker runs Component H's loop for one pinned core.
type Worker struct {
	cfg Config

	source distributor.Source
	sink   sender.Queue
	clk    clock.Source

	tables *flowtable.Tables
	driver *dpi.Driver
	rules  *ruleset.BlocklistConfig

	st  *stats.ThreadStats
	log *logging.Logger

	stop   atomic.Bool
	lastGC uint64
}

// New builds a Worker. tables and driver are per-worker (one flow
// table set and DPI driver per core); rules is shared across all
// workers in the process.
func New(cfg Config, source distributor.Source, sink sender.Queue, clk clock.Source, tables *flowtable.Tables, driver *dpi.Driver, rules *ruleset.BlocklistConfig, st *stats.ThreadStats, log *logging.Logger) *Worker {
	return &Worker{
		cfg:    cfg,
		source: source,
		sink:   sink,
		clk:    clk,
		tables: tables,
		driver: driver,
		rules:  rules,
		st:     st,
		log:    log,
	}
}

// Stop requests the loop to exit. The shutdown contract (§4.H, §5):
// the loop returns within one idle poll after Stop is called.
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// Run drives the worker loop until Stop is called or source is
// exhausted/closed.
func (w *Worker) Run(ctx context.Context) {
	for !w.stop.Load() {
		frame, ok := w.source.PollPacket(ctx)
		if !ok {
			return
		}

		now := w.clk.NowNanos()
		w.st.TotalPackets.Inc()
		w.analyze(frame, now)
		w.maybeRunGC(now)
	}
}

func (w *Worker) analyze(frame []byte, now uint64) {
	dp := decode.Decode(frame)
	w.bumpDecodeStats(dp)
	if !dp.Accepted() {
		return
	}

	w.st.IPPackets.Inc()
	w.st.TotalBytes.Add(float64(len(frame)))
	w.st.AnalyzedPackets.Inc()

	if res := gate.Check(w.rules.IPPortMap, dp); res.Matched {
		w.st.MatchedIPPort.Inc()
		w.st.SendedRST.Inc()
		w.sink.Enqueue(res.Order)
		return
	}

	rec := w.getOrCreateFlow(dp, now)
	if rec == nil {
		return
	}
	rec.LastSeen = now

	result := w.driver.Classify(rec, dp.L3, dp.IPTotalLen, now, w.cfg.TCPProto, dp.SrcPort, dp.DstPort)
	if result.Ignore {
		if result.AlreadyBlocked {
			w.st.AlreadyDetectedBlocked.Inc()
		}
		return
	}

	switch {
	case dpi.IsHTTPCandidate(result.Protocol):
		w.classifyHTTP(rec, dp)
	case dpi.IsTLSCandidate(result.Protocol):
		w.classifyTLS(rec, dp)
	}
}

func (w *Worker) classifyHTTP(rec *flowtable.FlowRecord, dp types.DecodedPacket) {
	st, ok := rec.DPI.(dpi.FlowState)
	if !ok {
		return
	}
	info := st.HTTP()
	if !httpclassifier.Eligible(info) {
		return
	}
	res := httpclassifier.Classify(w.rules, rec, info, dp, w.st)
	if res.Matched {
		w.sink.Enqueue(res.Order)
	}
}

func (w *Worker) classifyTLS(rec *flowtable.FlowRecord, dp types.DecodedPacket) {
	st, ok := rec.DPI.(dpi.FlowState)
	if !ok {
		return
	}
	res := tlsclassifier.Classify(w.rules, rec, st.SSL(), dp, w.st)
	if res.Matched {
		w.sink.Enqueue(res.Order)
	}
}

func (w *Worker) getOrCreateFlow(dp types.DecodedPacket, now uint64) *flowtable.FlowRecord {
	if dp.IPVersion == 4 {
		key := types.MakeFlowKeyV4(dp.SrcIP, dp.DstIP, dp.SrcPort, dp.DstPort, w.cfg.TCPProto)
		return w.tables.GetOrCreateV4(key, now)
	}
	key := types.MakeFlowKeyV6(dp.SrcIP, dp.DstIP, dp.SrcPort, dp.DstPort, w.cfg.TCPProto)
	return w.tables.GetOrCreateV6(key, now)
}

func (w *Worker) bumpDecodeStats(dp types.DecodedPacket) {
	switch dp.Drop {
	case types.DropNone:
		if dp.IPVersion == 4 {
			w.st.IPv4Packets.Inc()
		} else {
			w.st.IPv6Packets.Inc()
		}
	case types.DropIPv4Short:
		w.st.IPv4Packets.Inc()
		w.st.IPv4ShortPackets.Inc()
	case types.DropIPv4Fragment:
		w.st.IPv4Packets.Inc()
		w.st.IPv4Fragments.Inc()
	case types.DropIPv6Fragment:
		w.st.IPv6Packets.Inc()
		w.st.IPv6Fragments.Inc()
	}
}

// maybeRunGC runs one sweep tick if at least GCIntervalNanos elapsed
// since the last one (§4.G).
func (w *Worker) maybeRunGC(now uint64) {
	if now-w.lastGC < w.cfg.GCIntervalNanos {
		return
	}
	w.lastGC = now

	res := w.tables.Sweep(w.cfg.GCBudget, now, w.cfg.FlowIdleNanos)
	if res.EvictedV4 > 0 || res.EvictedV6 > 0 {
		w.st.NDPIFlowsDeleted.Add(float64(res.EvictedV4 + res.EvictedV6))
	}
	v4, v6, _ := w.tables.Counts()
	w.st.NDPIIPv4FlowsCount.Set(float64(v4))
	w.st.NDPIIPv6FlowsCount.Set(float64(v6))
	w.st.NDPIFlowsCount.Set(float64(v4 + v6))
}
