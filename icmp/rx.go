package icmp

import (
	"net/netip"
	"sync"

	"github.com/soypat/etherstack"
)

// Listener handles one ICMP message received from srcIP.
type Listener func(now int64, srcIP netip.Addr, frm Frame) error

// TxFactory builds a Tx bound to dst on demand, used to answer Echo Requests
// arriving from arbitrary source addresses.
type TxFactory func(dst netip.Addr) (*Tx, error)

// Rx validates incoming ICMP messages, auto-answers Echo Requests (when
// txFactory is set) and fans each message out to every listener registered
// for its type.
type Rx struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener
	txFactory TxFactory
}

// NewRx returns an Rx that answers Echo Requests using txFactory (pass nil to
// disable auto-reply and surface echo requests to registered listeners only).
func NewRx(txFactory TxFactory) *Rx {
	return &Rx{listeners: make(map[Type][]Listener), txFactory: txFactory}
}

// Register adds listener to the set invoked for every message of type t.
func (rx *Rx) Register(t Type, listener Listener) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	rx.listeners[t] = append(rx.listeners[t], listener)
}

// Recv parses buf as an ICMP message received from srcIP.
func (rx *Rx) Recv(now int64, srcIP netip.Addr, buf []byte) error {
	frm, err := NewFrame(buf)
	if err != nil {
		return etherstack.NewRxError(etherstack.RxInvalidLength, err)
	}
	var v etherstack.Validator
	frm.ValidateSize(&v)
	if v.HasError() {
		return etherstack.NewRxError(etherstack.RxInvalidLength, v.Err())
	}
	if frm.CalculateCRC() != frm.CRC() {
		return etherstack.NewRxError(etherstack.RxInvalidChecksum, nil)
	}

	t := frm.Type()
	answered := false
	if t == TypeEcho && rx.txFactory != nil {
		echo := FrameEcho{frm}
		tx, err := rx.txFactory(srcIP)
		if err != nil {
			return err
		}
		if err := tx.Reply(echo.Identifier(), echo.SequenceNumber(), echo.Data()); err != nil {
			return err
		}
		answered = true
	}

	rx.mu.RLock()
	listeners := rx.listeners[t]
	rx.mu.RUnlock()
	if len(listeners) == 0 {
		if answered {
			return nil
		}
		return etherstack.NewRxError(etherstack.RxNoListener, nil)
	}
	var firstErr error
	for _, l := range listeners {
		if err := l(now, srcIP, frm); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
