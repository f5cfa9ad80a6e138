package arp

import (
	"context"
	"net/netip"
	"sync"
)

// Table maps IPv4 addresses to their resolved hardware addresses and lets
// callers block until a resolution arrives. A single lock guards both the
// resolved-entry cache and the pending-waiter lists so that Get and Insert
// can never race: a waiter registered under Get's lock is guaranteed to see
// every Insert that happens after the registration completes.
type Table struct {
	mu      sync.Mutex
	entries map[netip.Addr][6]byte
	waiters map[netip.Addr][]chan [6]byte
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[netip.Addr][6]byte)}
}

// Get returns the hardware address for ip, blocking until it is resolved
// (via Insert) or ctx is done. Each call that misses the cache registers its
// own single-use waiter channel; it is never shared across callers.
func (t *Table) Get(ctx context.Context, ip netip.Addr) ([6]byte, error) {
	t.mu.Lock()
	if mac, ok := t.entries[ip]; ok {
		t.mu.Unlock()
		return mac, nil
	}
	ch := make(chan [6]byte, 1)
	if t.waiters == nil {
		t.waiters = make(map[netip.Addr][]chan [6]byte)
	}
	t.waiters[ip] = append(t.waiters[ip], ch)
	t.mu.Unlock()

	select {
	case mac := <-ch:
		return mac, nil
	case <-ctx.Done():
		return [6]byte{}, ctx.Err()
	}
}

// Peek returns the cached hardware address for ip without blocking.
func (t *Table) Peek(ip netip.Addr) (mac [6]byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mac, ok = t.entries[ip]
	return mac, ok
}

// Insert records the resolution of ip to mac and wakes every Get call
// currently blocked on ip.
func (t *Table) Insert(ip netip.Addr, mac [6]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[ip] = mac
	waiters := t.waiters[ip]
	delete(t.waiters, ip)
	for _, ch := range waiters {
		ch <- mac
	}
}

// Delete forgets any resolution recorded for ip.
func (t *Table) Delete(ip netip.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, ip)
}
