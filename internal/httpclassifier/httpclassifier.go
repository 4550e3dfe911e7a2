// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package httpclassifier implements Component E: once the DPI driver
// has surfaced an HTTP (or direct-download-link) request, normalize
// its URL, match it against the shared domain/URL blocklist under
// try-lock, and act — redirect or RST, with the domain/URL
// "does this set flow.block" asymmetry preserved verbatim from the
// source (§9 Open Question 2).
package httpclassifier

import (
	"net/url"
	"strconv"
	"strings"

	"extfilter.io/worker/internal/dpi"
	"extfilter.io/worker/internal/flowtable"
	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/stats"
	"extfilter.io/worker/internal/types"
)

// httpPrefixLen is len("http://"); the matcher only ever searches the
// URL from this offset onward, and host-substring offsets below are
// all relative to the full URL, matching the source's fixed "index 7"
// / "index 10" literal offsets (§4.E steps 2-3).
const httpPrefixLen = 7

// isRequestMethod reports whether method is one the classifier acts
// on (§4.E: "method ∈ {GET, POST, HEAD}").
func isRequestMethod(method string) bool {
	switch method {
	case "GET", "POST", "HEAD":
		return true
	default:
		return false
	}
}

// Eligible reports whether info carries a request this classifier
// should process at all.
func Eligible(info dpi.HTTPInfo) bool {
	return isRequestMethod(info.Method) && info.URL != ""
}

// Result tells the worker loop what happened.
type Result struct {
	// Handled is true when a verdict was reached (matched or
	// definitively not matched); false only when the matcher's lock
	// was contended and this packet's inspection was skipped.
	Handled bool

	Matched bool
	Order   types.InterdictionOrder
}

// Classify runs §4.E's pipeline against info.URL, using dp for the
// TCP 3-tuple/seq/payload-len needed to build an order.
func Classify(cfg *ruleset.BlocklistConfig, rec *flowtable.FlowRecord, info dpi.HTTPInfo, dp types.DecodedPacket, st *stats.ThreadStats) Result {
	normalized := normalize(cfg.Flags, info.URL)
	if len(normalized) <= httpPrefixLen {
		return Result{Handled: true}
	}

	searched := normalized[httpPrefixLen:]
	hits, locked := cfg.URLDomains.TryFindAll(searched)
	if !locked {
		return Result{}
	}

	for _, hit := range hits {
		if !acceptHit(cfg.Flags, searched, hit) {
			continue
		}
		return act(cfg, rec, hit.Meta, normalized, dp, st)
	}

	return Result{Handled: true}
}

// normalize applies §4.E steps 1-3.
func normalize(flags ruleset.Flags, rawURL string) string {
	if flags.URLNormalization {
		out := rawURL
		if u, err := url.Parse(rawURL); err == nil {
			out = u.String()
		}
		if flags.RemoveDot {
			out = removeTrailingHostDot(out)
		}
		return out
	}

	out := rawURL
	if flags.LowerHost {
		out = lowerHost(out)
	}
	if flags.RemoveDot {
		out = removeTrailingHostDot(out)
	}
	return out
}

func hostEnd(u string) int {
	if len(u) <= httpPrefixLen+3 {
		return len(u)
	}
	if idx := strings.IndexByte(u[10:], '/'); idx >= 0 {
		return 10 + idx
	}
	return len(u)
}

func lowerHost(u string) string {
	if len(u) <= httpPrefixLen {
		return u
	}
	end := hostEnd(u)
	if end > len(u) {
		end = len(u)
	}
	return u[:httpPrefixLen] + strings.ToLower(u[httpPrefixLen:end]) + u[end:]
}

func removeTrailingHostDot(u string) string {
	if len(u) <= 10 {
		return u
	}
	end := hostEnd(u)
	if end >= len(u) || end <= 0 || u[end] != '/' {
		return u
	}
	if u[end-1] != '.' {
		return u
	}
	return u[:end-1] + u[end:]
}

// acceptHit applies §4.E step 4's acceptance rule. hit.Pos is already
// the start offset of the match within searched, which is exactly the
// "r" the source derives from its end-relative position report.
func acceptHit(flags ruleset.Flags, searched string, hit ruleset.Hit[ruleset.URLMeta]) bool {
	if hit.Len == len(searched) {
		return true
	}
	r := hit.Pos
	switch hit.Meta.Type {
	case ruleset.EntryDomain:
		if hit.Meta.ExactMatch {
			return false
		}
	case ruleset.EntryURL:
		if flags.MatchURLExactly {
			return false
		}
	}
	if r > 0 && searched[r-1] != '.' {
		return false
	}
	return true
}

func act(cfg *ruleset.BlocklistConfig, rec *flowtable.FlowRecord, meta ruleset.URLMeta, normalizedURL string, dp types.DecodedPacket, st *stats.ThreadStats) Result {
	if meta.Type == ruleset.EntryDomain {
		st.MatchedDomains.Inc()
	} else {
		st.MatchedURLs.Inc()
	}

	order := types.InterdictionOrder{
		SrcPort: dp.SrcPort,
		DstPort: dp.DstPort,
		SrcIP:   dp.SrcIP,
		DstIP:   dp.DstIP,
		Ack:     dp.Ack,
	}

	if cfg.Flags.HTTPRedirect {
		order.Seq = dp.Seq + uint32(len(dp.Payload))
		order.PSHFlag = true
		order.ExtraParam = addParam(cfg.Flags.AddParamType, meta.LineNo, normalizedURL)
		if meta.Type == ruleset.EntryDomain {
			st.RedirectedDomains.Inc()
		} else {
			st.RedirectedURLs.Inc()
		}
	} else {
		order.Seq = dp.Seq
		order.IsRST = true
		st.SendedRST.Inc()
	}

	// Asymmetry preserved verbatim (§9 Open Question 2): only URL
	// matches mark the flow blocked. A domain match redirects or RSTs
	// this packet but leaves subsequent requests on the same flow
	// unblocked, so they are redirected again.
	if meta.Type == ruleset.EntryURL {
		rec.Block = true
	}

	return Result{Handled: true, Matched: true, Order: order}
}

func addParam(kind ruleset.AddParamType, lineNo int, fullURL string) string {
	switch kind {
	case ruleset.AddParamID:
		return "id=" + strconv.Itoa(lineNo)
	case ruleset.AddParamURL:
		return "url=" + fullURL
	default:
		return ""
	}
}
