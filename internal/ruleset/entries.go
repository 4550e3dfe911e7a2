// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleset

// EntryType distinguishes a domain blocklist entry from a full-URL
// blocklist entry (§3 url_domains, §4.E step 4).
type EntryType int

const (
	EntryDomain EntryType = iota
	EntryURL
)

// URLMeta is the auxiliary per-pattern metadata for url_domains.
type URLMeta struct {
	Type       EntryType
	ExactMatch bool
	LineNo     int
}

// DomainMeta is the auxiliary per-pattern metadata for ssl_domains.
type DomainMeta struct {
	ExactMatch bool
}

// AddParamType selects how a redirect order's extra parameter is built
// (§3 add_p_type, §4.E step 5).
type AddParamType int

const (
	AddParamNone AddParamType = iota
	AddParamID
	AddParamURL
)

// Flags are the shared configuration booleans of §3.
type Flags struct {
	URLNormalization   bool
	RemoveDot          bool
	LowerHost          bool
	MatchURLExactly    bool
	HTTPRedirect       bool
	BlockUndetectedSSL bool
	AddParamType       AddParamType
}
