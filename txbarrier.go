package etherstack

import "sync"

// DatalinkSender is the external collaborator contract for actually writing frames
// to the wire: it allocates count buffers of packetSize bytes each, invokes build
// once per buffer to fill it, and transmits them. build must not retain buf beyond the call.
type DatalinkSender interface {
	Send(count, packetSize int, build func(buf []byte) error) error
}

// TxBarrier owns a datalink sender and a monotonically increasing version counter.
// Any event that could invalidate outstanding send chains (an ARP update that
// changes a destination MAC, interface reconfiguration) bumps the version.
// Every Tx handle captures a version snapshot at construction and is refused
// at send time once the barrier has moved on. The zero value is not usable;
// construct with NewTxBarrier.
type TxBarrier struct {
	mu      sync.Mutex
	version uint64
	sender  DatalinkSender
}

// NewTxBarrier wraps sender in a TxBarrier starting at version 0.
func NewTxBarrier(sender DatalinkSender) *TxBarrier {
	return &TxBarrier{sender: sender}
}

// Bump increments the barrier's version, invalidating every Tx snapshot taken before this call.
func (b *TxBarrier) Bump() {
	b.mu.Lock()
	b.version++
	b.mu.Unlock()
}

// Version returns the barrier's current version.
func (b *TxBarrier) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// NewTx captures a send handle at the barrier's current version.
func (b *TxBarrier) NewTx() *Tx {
	return &Tx{barrier: b, version: b.Version()}
}

// Tx is a versioned reference to a TxBarrier. It is the unit every protocol
// layer's *Tx type (EthernetTx, ArpTx, Ipv4Tx, UdpTx...) is built on top of.
type Tx struct {
	barrier *TxBarrier
	version uint64
}

// Send locks the barrier, fails with a TxInvalidTx error if the barrier has moved
// on since this Tx was captured, and otherwise delegates to the underlying
// DatalinkSender for the duration of the lock (the barrier owns the one writer).
func (t *Tx) Send(count, packetSize int, build func(buf []byte) error) error {
	t.barrier.mu.Lock()
	defer t.barrier.mu.Unlock()
	if t.barrier.version != t.version {
		return NewTxError(TxInvalidTx, nil)
	}
	if err := t.barrier.sender.Send(count, packetSize, build); err != nil {
		return NewTxError(TxIoError, err)
	}
	return nil
}

// Stale reports whether the barrier has moved on since this Tx snapshot was taken,
// without attempting a send. Useful for socket send caches that want to avoid a
// doomed Send call before rebuilding.
func (t *Tx) Stale() bool {
	return t.barrier.Version() != t.version
}
