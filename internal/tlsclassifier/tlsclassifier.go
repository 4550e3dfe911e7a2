// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tlsclassifier implements Component F: once the DPI driver
// has classified a flow as SSL/TLS (or TOR), match the client
// certificate identifier (SNI or equivalent) against ssl_domains, or
// fall back to an ssl_ips membership check when no identifier was
// seen and block_undetected_ssl is enabled (§4.F). detection_completed
// is never set here — the flow keeps being fed to the DPI engine until
// it completes on its own.
package tlsclassifier

import (
	"strings"

	"extfilter.io/worker/internal/dpi"
	"extfilter.io/worker/internal/flowtable"
	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/stats"
	"extfilter.io/worker/internal/types"
)

// Result tells the worker loop what happened.
type Result struct {
	// Handled is false only when every applicable matcher's lock was
	// contended and the inspection was skipped this packet.
	Handled bool

	Matched bool
	Order   types.InterdictionOrder
}

// Classify runs §4.F against a flow's SSL/TLS identity.
func Classify(cfg *ruleset.BlocklistConfig, rec *flowtable.FlowRecord, ssl dpi.SSLInfo, dp types.DecodedPacket, st *stats.ThreadStats) Result {
	if ssl.SeenClientCert && ssl.ClientCertificate != "" {
		return classifyByDomain(cfg, rec, ssl.ClientCertificate, dp, st)
	}
	if cfg.Flags.BlockUndetectedSSL {
		return classifyByIP(cfg, rec, dp, st)
	}
	return Result{Handled: true}
}

func classifyByDomain(cfg *ruleset.BlocklistConfig, rec *flowtable.FlowRecord, identifier string, dp types.DecodedPacket, st *stats.ThreadStats) Result {
	if cfg.Flags.LowerHost {
		identifier = strings.ToLower(identifier)
	}

	hits, locked := cfg.SSLDomains.TryFindAll(identifier)
	if !locked {
		return Result{}
	}

	for _, hit := range hits {
		if !acceptHit(identifier, hit) {
			continue
		}
		st.MatchedSSL.Inc()
		st.SendedRST.Inc()
		rec.Block = true
		return Result{
			Handled: true,
			Matched: true,
			Order: types.InterdictionOrder{
				SrcPort: dp.SrcPort,
				DstPort: dp.DstPort,
				SrcIP:   dp.SrcIP,
				DstIP:   dp.DstIP,
				Ack:     dp.Ack,
				Seq:     dp.Seq,
				IsRST:   true,
			},
		}
	}
	return Result{Handled: true}
}

// acceptHit mirrors §4.E step 4's rule with §4.F's one departure: a
// non-full-length hit is accepted only when exact_match is false (not
// merely "unless set") and the character just before the match is a
// dot, with no alternative "length equality" escape hatch once
// exact_match is true.
func acceptHit(identifier string, hit ruleset.Hit[ruleset.DomainMeta]) bool {
	if hit.Len == len(identifier) {
		return true
	}
	if hit.Meta.ExactMatch {
		return false
	}
	r := hit.Pos
	if r == 0 {
		return false
	}
	return identifier[r-1] == '.'
}

func classifyByIP(cfg *ruleset.BlocklistConfig, rec *flowtable.FlowRecord, dp types.DecodedPacket, st *stats.ThreadStats) Result {
	found, locked := cfg.SSLIPs.TryContains(dp.DstIP)
	if !locked {
		return Result{}
	}
	if !found {
		return Result{Handled: true}
	}

	st.MatchedSSLIP.Inc()
	st.SendedRST.Inc()
	rec.Block = true
	return Result{
		Handled: true,
		Matched: true,
		Order: types.InterdictionOrder{
			SrcPort: dp.SrcPort,
			DstPort: dp.DstPort,
			SrcIP:   dp.SrcIP,
			DstIP:   dp.DstIP,
			Ack:     dp.Ack,
			Seq:     dp.Seq,
			IsRST:   true,
		},
	}
}
