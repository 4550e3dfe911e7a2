// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ruleset holds the five mutable, shared collaborator
// rule-sets of spec.md §3/§5 (ip_port_map, ssl_ips, ssl_domains,
// url_domains plus their flags), each guarded by its own non-blocking
// lock so a worker never waits on the control plane (the
// try-lock-and-skip discipline that is this design's core throughput
// guarantee).
package ruleset

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Entry pairs a literal pattern with caller-defined metadata (domain
// line number, exact-match flag, entry type, ...).
type Entry[M any] struct {
	Pattern string
	Meta    M
}

// Hit is one surviving Aho-Corasick match, ordered by Pos ascending so
// callers can apply "first surviving hit wins; stop" (§4.E step 4,
// §4.F) without re-deriving positions themselves.
type Hit[M any] struct {
	Meta M
	Pos  int // start offset of the match within the searched string
	Len  int // length of the matched pattern
}

// Matcher is a try-lock-guarded multi-pattern matcher over patterns of
// metadata type M. The underlying github.com/cloudflare/ahocorasick
// automaton reports which dictionary entries occur in a haystack but
// not their positions, so Matcher resolves each reported entry's first
// occurrence itself and sorts by position — this is a single extra
// substring scan per *matched* entry, not per candidate pattern, so it
// stays cheap even with large blocklists.
type Matcher[M any] struct {
	mu       sync.Mutex
	ac       *ahocorasick.Matcher
	patterns []string
	meta     []M
}

// NewMatcher builds a Matcher from entries. An empty entries slice is
// valid and always reports no hits.
func NewMatcher[M any](entries []Entry[M]) *Matcher[M] {
	m := &Matcher[M]{}
	m.rebuildLocked(entries)
	return m
}

func (m *Matcher[M]) rebuildLocked(entries []Entry[M]) {
	patterns := make([]string, len(entries))
	meta := make([]M, len(entries))
	for i, e := range entries {
		patterns[i] = e.Pattern
		meta[i] = e.Meta
	}
	m.patterns = patterns
	m.meta = meta
	if len(patterns) == 0 {
		m.ac = nil
		return
	}
	m.ac = ahocorasick.NewStringMatcher(patterns)
}

// Swap atomically replaces the pattern set. This blocks (it is the
// control-plane write path, not the data-plane read path) rather than
// try-locking, the same asymmetry the source's Poco::Mutex has between
// the loader thread (blocking lock) and the worker (tryLock).
func (m *Matcher[M]) Swap(entries []Entry[M]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildLocked(entries)
}

// TryFindAll attempts to acquire the matcher's lock without blocking.
// locked is false if the lock was contended, in which case the caller
// must skip this inspection for the current packet per the
// try-lock-and-skip discipline. When locked is true, hits is the set
// of matches found in haystack, sorted by Pos ascending.
func (m *Matcher[M]) TryFindAll(haystack string) (hits []Hit[M], locked bool) {
	if !m.mu.TryLock() {
		return nil, false
	}
	defer m.mu.Unlock()

	if m.ac == nil || haystack == "" {
		return nil, true
	}

	idxs := m.ac.Match([]byte(haystack))
	if len(idxs) == 0 {
		return nil, true
	}

	hits = make([]Hit[M], 0, len(idxs))
	seen := make(map[int]bool, len(idxs))
	for _, idx := range idxs {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		pat := m.patterns[idx]
		pos := strings.Index(haystack, pat)
		if pos < 0 {
			continue
		}
		hits = append(hits, Hit[M]{Meta: m.meta[idx], Pos: pos, Len: len(pat)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Pos < hits[j].Pos })
	return hits, true
}
