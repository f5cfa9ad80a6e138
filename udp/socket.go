package udp

import (
	"context"
	"errors"
	"net/netip"
	"sync"

	"github.com/soypat/etherstack"
)

// TxFactory builds a Tx addressed to (dst, dstPort), typically by resolving
// dst's hardware address (blocking on ARP if necessary) and wrapping the
// resulting Ethernet/IPv4 Tx chain. It may be called again for the same
// destination if a previously cached Tx goes stale.
type TxFactory func(ctx context.Context, dst netip.Addr, dstPort uint16) (*Tx, error)

type datagram struct {
	srcIP   netip.Addr
	srcPort uint16
	payload []byte
}

// Socket is a bound UDP endpoint: a local port with a registered Rx listener
// delivering into an inbox, and a cache of per-destination Tx handles.
type Socket struct {
	rx        *Rx
	localPort uint16
	newTx     TxFactory
	inbox     chan datagram

	mu    sync.Mutex
	cache map[netip.AddrPort]*Tx
}

// Listen registers a Socket bound to localPort on rx. newTx builds outgoing
// Tx handles on demand for SendTo.
func Listen(rx *Rx, localPort uint16, newTx TxFactory) *Socket {
	s := &Socket{
		rx:        rx,
		localPort: localPort,
		newTx:     newTx,
		inbox:     make(chan datagram, 64),
		cache:     make(map[netip.AddrPort]*Tx),
	}
	rx.Register(localPort, s.deliver)
	return s
}

func (s *Socket) deliver(now int64, srcIP netip.Addr, srcPort uint16, payload []byte) (keep bool, err error) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	select {
	case s.inbox <- datagram{srcIP: srcIP, srcPort: srcPort, payload: cp}:
	default:
		// Receiver isn't keeping up; drop rather than block the receive loop
		// or grow an unbounded queue.
	}
	return true, nil
}

// RecvFrom blocks until a datagram arrives on this socket's port or ctx is done.
func (s *Socket) RecvFrom(ctx context.Context) (srcIP netip.Addr, srcPort uint16, payload []byte, err error) {
	select {
	case d := <-s.inbox:
		return d.srcIP, d.srcPort, d.payload, nil
	case <-ctx.Done():
		return netip.Addr{}, 0, nil, ctx.Err()
	}
}

// SendTo sends payload to (dst, dstPort), reusing a cached Tx for that
// destination when available. If the send fails because the cached Tx's
// TxBarrier snapshot has gone stale (the barrier was bumped after the Tx was
// built), SendTo rebuilds the Tx once and
// retries exactly once before returning the error.
func (s *Socket) SendTo(ctx context.Context, dst netip.Addr, dstPort uint16, payload []byte) error {
	key := netip.AddrPortFrom(dst, dstPort)
	tx, err := s.txFor(ctx, key, dst, dstPort)
	if err != nil {
		return err
	}
	err = s.sendOnce(tx, dstPort, payload)
	if err == nil {
		return nil
	}
	var txErr *etherstack.TxError
	if !errors.As(err, &txErr) || txErr.Kind != etherstack.TxInvalidTx {
		return err
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	tx, err = s.txFor(ctx, key, dst, dstPort)
	if err != nil {
		return err
	}
	return s.sendOnce(tx, dstPort, payload)
}

func (s *Socket) sendOnce(tx *Tx, dstPort uint16, payload []byte) error {
	return tx.Send(s.localPort, dstPort, len(payload), func(buf []byte) error {
		copy(buf, payload)
		return nil
	})
}

func (s *Socket) txFor(ctx context.Context, key netip.AddrPort, dst netip.Addr, dstPort uint16) (*Tx, error) {
	s.mu.Lock()
	tx, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return tx, nil
	}
	tx, err := s.newTx(ctx, dst, dstPort)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[key] = tx
	s.mu.Unlock()
	return tx, nil
}

// Close deregisters the socket's listener. Further datagrams addressed to
// its port are reported as RxNoListener until another listener registers.
func (s *Socket) Close() error {
	s.rx.Deregister(s.localPort)
	return nil
}
