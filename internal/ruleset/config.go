// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleset

// BlocklistConfig is the full set of shared, mutable collaborators a
// worker consults: the gate's IP:port blocklist, the TLS classifier's
// SNI/cert domain matcher and undetected-SSL IP fallback, the HTTP
// classifier's domain/URL matcher, and the shared behavioral flags
// that shape how all three are applied (§3).
//
// A single BlocklistConfig is shared by every worker goroutine; each
// field is independently try-lock-guarded so one worker's inspection
// never blocks on another's, or on the control plane reloading rules
// out from under them.
type BlocklistConfig struct {
	IPPortMap  *IPPortMap
	SSLIPs     *IPSet
	SSLDomains *Matcher[DomainMeta]
	URLDomains *Matcher[URLMeta]
	Flags      Flags
}

// NewBlocklistConfig builds an empty BlocklistConfig with the given
// flags; callers populate the collaborators via their own Swap calls
// (e.g. after loading a rules file) before workers start.
func NewBlocklistConfig(flags Flags) *BlocklistConfig {
	return &BlocklistConfig{
		IPPortMap:  NewIPPortMap(nil),
		SSLIPs:     NewIPSet(nil),
		SSLDomains: NewMatcher[DomainMeta](nil),
		URLDomains: NewMatcher[URLMeta](nil),
		Flags:      flags,
	}
}
