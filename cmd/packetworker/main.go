// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command packetworker runs one or more per-core packet analysis
// workers (§4, §5): each reads frames from its own packet source,
// decodes, gates, tracks flows, classifies HTTP/TLS, and enqueues
// interdiction orders, against a shared, hot-reloadable ruleset.
//
// The production packet source and sender queue drain (both external
// collaborators per spec.md §1/§6) are out of this module's scope;
// this binary wires a PCAP-file replay source per worker so it is
// runnable end to end against a capture, the same role cmd/flywall-sim
// fills for the reference repo's learning engine. Its DPI engine is
// dpi.FakeEngine with no scripted flows, so every flow stays
// unclassified and only the ip:port gate can produce orders.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"extfilter.io/worker/internal/clock"
	"extfilter.io/worker/internal/distributor"
	"extfilter.io/worker/internal/dpi"
	"extfilter.io/worker/internal/flowtable"
	"extfilter.io/worker/internal/logging"
	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/sender"
	"extfilter.io/worker/internal/stats"
	"extfilter.io/worker/internal/worker"
)

// pcapFlag collects repeated -pcap flags, one capture file per worker.
type pcapFlag []string

func (p *pcapFlag) String() string { return strings.Join(*p, ",") }
func (p *pcapFlag) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var pcaps pcapFlag
	flag.Var(&pcaps, "pcap", "capture file to replay for one worker (repeatable, one per core)")
	hashCapacity := flag.Int("hash-capacity", 4096, "per-worker flow hash capacity H (power of two, §4.B/§4.G)")
	flowIdle := flag.Duration("flow-idle", 120*time.Second, "idle time before a flow is evicted")
	gcInterval := flag.Duration("gc-interval", 100*time.Millisecond, "worker GC tick cadence")
	allGCInterval := flag.Duration("all-gc-interval", 10*time.Minute, "target period to sweep the whole table once")
	orderQueueCapacity := flag.Int("order-queue-capacity", 4096, "interdiction order queue depth per worker")
	metricsAddr := flag.String("metrics-addr", ":9100", "Prometheus /metrics listen address")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	httpRedirect := flag.Bool("http-redirect", true, "enable HTTP redirect-on-block (§3 http_redirect)")
	blockUndetectedSSL := flag.Bool("block-undetected-ssl", false, "fall back to the SSL IP set when no client cert is seen (§3 block_undetected_ssl)")
	addParam := flag.String("add-param", "id", "redirect extra-param kind: none, id, or url (§3 add_p_type)")
	flag.Parse()

	log := logging.New(logging.Config{Level: *logLevel, ReportTime: true, Prefix: "packetworker"})

	if len(pcaps) == 0 {
		log.Fatal("at least one -pcap capture file is required")
		os.Exit(1)
	}

	apType, err := parseAddParam(*addParam)
	if err != nil {
		log.Fatal("invalid -add-param", "value", *addParam, "err", err)
		os.Exit(1)
	}

	metrics := stats.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		log.Fatal("failed to register metrics", "err", err)
		os.Exit(1)
	}

	rules := ruleset.NewBlocklistConfig(ruleset.Flags{
		HTTPRedirect:       *httpRedirect,
		BlockUndetectedSSL: *blockUndetectedSSL,
		AddParamType:       apType,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "err", err)
		}
	}()

	var wg sync.WaitGroup
	workers := make([]*worker.Worker, 0, len(pcaps))
	closers := make([]*distributor.PCAPSource, 0, len(pcaps))

	for i, path := range pcaps {
		id := fmt.Sprintf("%d-%s", i, uuid.New().String())

		src, err := distributor.NewPCAPSource(path)
		if err != nil {
			log.Error("failed to open capture, skipping worker", "pcap", path, "err", err)
			continue
		}
		closers = append(closers, src)

		engine := dpi.NewFakeEngine()
		tables, err := flowtable.NewTables(*hashCapacity, dpi.NewAllocator(engine), log.With("worker", id))
		if err != nil {
			log.Fatal("failed to build flow tables", "worker", id, "err", err)
			os.Exit(1)
		}

		wst := metrics.NewThreadStats(id)
		queue := sender.NewChannelQueue(*orderQueueCapacity, log.With("worker", id), func() {
			wst.SendedRST.Inc()
		})

		cfg := worker.Config{
			ID:              id,
			HashCapacity:    *hashCapacity,
			FlowIdleNanos:   uint64(flowIdle.Nanoseconds()),
			GCIntervalNanos: uint64(gcInterval.Nanoseconds()),
			GCBudget:        flowtable.GCBudget(*hashCapacity, float64(gcInterval.Microseconds()), allGCInterval.Seconds()),
			TCPProto:        6,
		}

		w := worker.New(cfg, src, queue, clock.NewMonotonic(), tables, dpi.NewDriver(engine), rules, wst, log.With("worker", id))
		workers = append(workers, w)

		wg.Add(1)
		go func(w *worker.Worker, id string) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			log.Info("worker starting", "worker", id)
			w.Run(ctx)
			log.Info("worker stopped", "worker", id)
		}(w, id)
	}

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	select {
	case <-ctx.Done():
		for _, w := range workers {
			w.Stop()
		}
		<-workersDone
	case <-workersDone:
		log.Info("all capture files replayed, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	for _, c := range closers {
		_ = c.Close()
	}
}

func parseAddParam(s string) (ruleset.AddParamType, error) {
	switch s {
	case "none":
		return ruleset.AddParamNone, nil
	case "id":
		return ruleset.AddParamID, nil
	case "url":
		return ruleset.AddParamURL, nil
	default:
		return 0, fmt.Errorf("unknown add-param kind %q", s)
	}
}
