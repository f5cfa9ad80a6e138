// Package routing implements longest-prefix-match IPv4 route selection.
package routing

import (
	"net/netip"
	"sort"
	"sync"
)

// Route associates a destination prefix with the local interface identifier
// and next hop to use for it. Iface is an opaque key the caller defines (an
// interface name, index, or pointer wrapped in an integer) — the routing
// package only ever returns it back to the caller, never interprets it.
type Route struct {
	Prefix  netip.Prefix
	Iface   int
	NextHop netip.Addr // zero Addr means the destination is on-link.
}

// Table holds a set of routes and resolves the best match for a destination
// address by longest matching prefix, breaking ties by insertion order
// (earlier insertions win).
type Table struct {
	mu     sync.RWMutex
	routes []routeEntry
}

type routeEntry struct {
	Route
	seq int
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{}
}

// Insert adds r to the table. Inserting the same prefix twice keeps both;
// the earlier insertion is preferred on a tie (see Lookup).
func (t *Table) Insert(r Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq := 0
	if n := len(t.routes); n > 0 {
		seq = t.routes[n-1].seq + 1
	}
	t.routes = append(t.routes, routeEntry{Route: r, seq: seq})
}

// Remove deletes every route matching prefix exactly.
func (t *Table) Remove(prefix netip.Prefix) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.routes[:0]
	for _, re := range t.routes {
		if re.Prefix != prefix {
			kept = append(kept, re)
		}
	}
	t.routes = kept
}

// Lookup returns the route with the longest prefix containing dst. Among
// routes of equal prefix length, the one inserted earliest wins. ok is false
// if no route contains dst.
func (t *Table) Lookup(dst netip.Addr) (route Route, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	best := -1
	for i, re := range t.routes {
		if !re.Prefix.Contains(dst) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		candidate := t.routes[i]
		current := t.routes[best]
		if candidate.Prefix.Bits() > current.Prefix.Bits() {
			best = i
		} else if candidate.Prefix.Bits() == current.Prefix.Bits() && candidate.seq < current.seq {
			best = i
		}
	}
	if best == -1 {
		return Route{}, false
	}
	return t.routes[best].Route, true
}

// Routes returns a snapshot of all routes, ordered by descending prefix
// length (ties broken by insertion order).
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]routeEntry, len(t.routes))
	copy(out, t.routes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Prefix.Bits() != out[j].Prefix.Bits() {
			return out[i].Prefix.Bits() > out[j].Prefix.Bits()
		}
		return out[i].seq < out[j].seq
	})
	result := make([]Route, len(out))
	for i, re := range out {
		result[i] = re.Route
	}
	return result
}
