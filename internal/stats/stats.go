// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package stats implements Component H's per-worker counters (§6),
// exported through Prometheus the same way the reference repo exports
// its eBPF program counters: one CounterVec (GaugeVec for the three
// live-flow gauges) per metric, labeled by
// worker so a fleet of per-core workers shows up as one time series
// per core rather than one registry per core.
package stats

import "github.com/prometheus/client_golang/prometheus"

// ThreadStats is one worker's counters. All fields are
// prometheus.Counter handles (prometheus.Gauge for the three
// NDPI*FlowsCount fields) pre-bound to this worker's label value;
// callers just call Inc()/Add() on the hot path with no further
// label lookups.
type ThreadStats struct {
	TotalPackets       prometheus.Counter
	IPv4Packets        prometheus.Counter
	IPv6Packets        prometheus.Counter
	IPv4ShortPackets   prometheus.Counter
	IPv4Fragments      prometheus.Counter
	IPv6Fragments      prometheus.Counter
	IPPackets          prometheus.Counter
	AnalyzedPackets    prometheus.Counter
	TotalBytes         prometheus.Counter
	MatchedIPPort      prometheus.Counter
	MatchedSSL         prometheus.Counter
	MatchedSSLIP       prometheus.Counter
	MatchedDomains     prometheus.Counter
	MatchedURLs        prometheus.Counter
	RedirectedDomains  prometheus.Counter
	RedirectedURLs     prometheus.Counter
	SendedRST          prometheus.Counter
	AlreadyDetectedBlocked prometheus.Counter
	NDPIFlowsCount     prometheus.Gauge
	NDPIIPv4FlowsCount prometheus.Gauge
	NDPIIPv6FlowsCount prometheus.Gauge
	NDPIFlowsDeleted   prometheus.Counter
}

// Metrics is the process-wide registry of per-worker counter vectors;
// NewThreadStats(workerID) binds one ThreadStats against it.
type Metrics struct {
	totalPackets       *prometheus.CounterVec
	ipv4Packets        *prometheus.CounterVec
	ipv6Packets        *prometheus.CounterVec
	ipv4ShortPackets   *prometheus.CounterVec
	ipv4Fragments      *prometheus.CounterVec
	ipv6Fragments      *prometheus.CounterVec
	ipPackets          *prometheus.CounterVec
	analyzedPackets    *prometheus.CounterVec
	totalBytes         *prometheus.CounterVec
	matchedIPPort      *prometheus.CounterVec
	matchedSSL         *prometheus.CounterVec
	matchedSSLIP       *prometheus.CounterVec
	matchedDomains     *prometheus.CounterVec
	matchedURLs        *prometheus.CounterVec
	redirectedDomains  *prometheus.CounterVec
	redirectedURLs     *prometheus.CounterVec
	sendedRST          *prometheus.CounterVec
	alreadyDetectedBlocked *prometheus.CounterVec
	ndpiFlowsCount     *prometheus.GaugeVec
	ndpiIPv4FlowsCount *prometheus.GaugeVec
	ndpiIPv6FlowsCount *prometheus.GaugeVec
	ndpiFlowsDeleted   *prometheus.CounterVec
}

func counterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "packetworker_" + name,
		Help: help,
	}, []string{"worker"})
}

func gaugeVec(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "packetworker_" + name,
		Help: help,
	}, []string{"worker"})
}

// NewMetrics builds an unregistered Metrics; call Register to expose
// it to the default (or a supplied) Prometheus registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		totalPackets:           counterVec("total_packets_total", "Total packets seen by the worker"),
		ipv4Packets:            counterVec("ipv4_packets_total", "IPv4 packets seen"),
		ipv6Packets:            counterVec("ipv6_packets_total", "IPv6 packets seen"),
		ipv4ShortPackets:       counterVec("ipv4_short_packets_total", "IPv4 packets shorter than a minimal IP header"),
		ipv4Fragments:          counterVec("ipv4_fragments_total", "IPv4 fragments dropped"),
		ipv6Fragments:          counterVec("ipv6_fragments_total", "IPv6 fragments dropped"),
		ipPackets:              counterVec("ip_packets_total", "IP packets the decoder accepted as TCP with payload"),
		analyzedPackets:        counterVec("analyzed_packets_total", "Packets the decoder accepted, counted before the ip:port gate"),
		totalBytes:             counterVec("total_bytes_total", "Total frame bytes of packets the decoder accepted"),
		matchedIPPort:          counterVec("matched_ip_port_total", "Packets matched by the ip:port gate"),
		matchedSSL:             counterVec("matched_ssl_total", "Flows matched by TLS domain/cert inspection"),
		matchedSSLIP:           counterVec("matched_ssl_ip_total", "Flows matched by the undetected-SSL IP fallback"),
		matchedDomains:         counterVec("matched_domains_total", "HTTP requests matched by host blocklist"),
		matchedURLs:            counterVec("matched_urls_total", "HTTP requests matched by URL blocklist"),
		redirectedDomains:      counterVec("redirected_domains_total", "HTTP domain matches that triggered a redirect"),
		redirectedURLs:         counterVec("redirected_urls_total", "HTTP URL matches that triggered a redirect"),
		sendedRST:              counterVec("sended_rst_total", "RST orders emitted"),
		alreadyDetectedBlocked: counterVec("already_detected_blocked_total", "Packets on flows already completed and blocked"),
		ndpiFlowsCount:         gaugeVec("dpi_flows", "Live DPI flow records"),
		ndpiIPv4FlowsCount:     gaugeVec("dpi_ipv4_flows", "Live IPv4 DPI flow records"),
		ndpiIPv6FlowsCount:     gaugeVec("dpi_ipv6_flows", "Live IPv6 DPI flow records"),
		ndpiFlowsDeleted:       counterVec("dpi_flows_deleted_total", "DPI flow records reclaimed by garbage collection"),
	}
}

// Register exposes every vector in m to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.totalPackets, m.ipv4Packets, m.ipv6Packets, m.ipv4ShortPackets,
		m.ipv4Fragments, m.ipv6Fragments, m.ipPackets, m.analyzedPackets,
		m.totalBytes, m.matchedIPPort, m.matchedSSL, m.matchedSSLIP,
		m.matchedDomains, m.matchedURLs, m.redirectedDomains, m.redirectedURLs,
		m.sendedRST, m.alreadyDetectedBlocked, m.ndpiFlowsCount,
		m.ndpiIPv4FlowsCount, m.ndpiIPv6FlowsCount, m.ndpiFlowsDeleted,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// NewThreadStats binds a ThreadStats against m for the given worker
// label (cmd/packetworker uses "<index>-<uuid>", one per pinned core).
func (m *Metrics) NewThreadStats(worker string) *ThreadStats {
	return &ThreadStats{
		TotalPackets:           m.totalPackets.WithLabelValues(worker),
		IPv4Packets:            m.ipv4Packets.WithLabelValues(worker),
		IPv6Packets:            m.ipv6Packets.WithLabelValues(worker),
		IPv4ShortPackets:       m.ipv4ShortPackets.WithLabelValues(worker),
		IPv4Fragments:          m.ipv4Fragments.WithLabelValues(worker),
		IPv6Fragments:          m.ipv6Fragments.WithLabelValues(worker),
		IPPackets:              m.ipPackets.WithLabelValues(worker),
		AnalyzedPackets:        m.analyzedPackets.WithLabelValues(worker),
		TotalBytes:             m.totalBytes.WithLabelValues(worker),
		MatchedIPPort:          m.matchedIPPort.WithLabelValues(worker),
		MatchedSSL:             m.matchedSSL.WithLabelValues(worker),
		MatchedSSLIP:           m.matchedSSLIP.WithLabelValues(worker),
		MatchedDomains:         m.matchedDomains.WithLabelValues(worker),
		MatchedURLs:            m.matchedURLs.WithLabelValues(worker),
		RedirectedDomains:      m.redirectedDomains.WithLabelValues(worker),
		RedirectedURLs:         m.redirectedURLs.WithLabelValues(worker),
		SendedRST:              m.sendedRST.WithLabelValues(worker),
		AlreadyDetectedBlocked: m.alreadyDetectedBlocked.WithLabelValues(worker),
		NDPIFlowsCount:         m.ndpiFlowsCount.WithLabelValues(worker),
		NDPIIPv4FlowsCount:     m.ndpiIPv4FlowsCount.WithLabelValues(worker),
		NDPIIPv6FlowsCount:     m.ndpiIPv6FlowsCount.WithLabelValues(worker),
		NDPIFlowsDeleted:       m.ndpiFlowsDeleted.WithLabelValues(worker),
	}
}
