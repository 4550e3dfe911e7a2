// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleset

import (
	"net/netip"
	"sync"
)

// IPPortMap is the Interdiction Gate's ip_port_map (§3, §4.C): a set of
// IPs, each with an optional set of ports. An IP present with an empty
// port set matches on ANY port for that IP. Reads happen on every
// packet before a flow is even looked up, so they use the same
// try-lock-and-skip discipline as the classifier rule-sets.
type IPPortMap struct {
	mu   sync.Mutex
	ips  map[netip.Addr]map[uint16]struct{}
}

// NewIPPortMap builds an IPPortMap from ips, a map of address to the
// set of ports gating that address (nil or empty value means any
// port).
func NewIPPortMap(ips map[netip.Addr][]uint16) *IPPortMap {
	m := &IPPortMap{}
	m.rebuildLocked(ips)
	return m
}

func (m *IPPortMap) rebuildLocked(ips map[netip.Addr][]uint16) {
	built := make(map[netip.Addr]map[uint16]struct{}, len(ips))
	for addr, ports := range ips {
		if len(ports) == 0 {
			built[addr] = nil
			continue
		}
		set := make(map[uint16]struct{}, len(ports))
		for _, p := range ports {
			set[p] = struct{}{}
		}
		built[addr] = set
	}
	m.ips = built
}

// Swap atomically replaces the map's contents. Blocking: this is the
// control-plane write path.
func (m *IPPortMap) Swap(ips map[netip.Addr][]uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildLocked(ips)
}

// TryMatch attempts a non-blocking lookup of addr/port. locked is false
// if the map's lock was contended, in which case the gate must let the
// packet through unchecked for this one packet rather than block.
func (m *IPPortMap) TryMatch(addr netip.Addr, port uint16) (matched bool, locked bool) {
	if !m.mu.TryLock() {
		return false, false
	}
	defer m.mu.Unlock()

	ports, ok := m.ips[addr]
	if !ok {
		return false, true
	}
	if len(ports) == 0 {
		return true, true
	}
	_, ok = ports[port]
	return ok, true
}

// IPSet is a try-lock-guarded set of bare IPs, used for ssl_ips (§4.F's
// block_undetected_ssl fallback: block a TLS flow to one of these IPs
// even when no SNI/cert domain matched).
type IPSet struct {
	mu  sync.Mutex
	set map[netip.Addr]struct{}
}

// NewIPSet builds an IPSet from ips.
func NewIPSet(ips []netip.Addr) *IPSet {
	s := &IPSet{}
	s.rebuildLocked(ips)
	return s
}

func (s *IPSet) rebuildLocked(ips []netip.Addr) {
	built := make(map[netip.Addr]struct{}, len(ips))
	for _, ip := range ips {
		built[ip] = struct{}{}
	}
	s.set = built
}

// Swap atomically replaces the set's contents (blocking control-plane
// write path).
func (s *IPSet) Swap(ips []netip.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked(ips)
}

// TryContains attempts a non-blocking membership check. locked is
// false if the set's lock was contended.
func (s *IPSet) TryContains(addr netip.Addr) (found bool, locked bool) {
	if !s.mu.TryLock() {
		return false, false
	}
	defer s.mu.Unlock()

	_, ok := s.set[addr]
	return ok, true
}
