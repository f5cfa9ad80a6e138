package udp

import (
	"net/netip"
	"sync"

	"github.com/soypat/etherstack"
	"github.com/soypat/etherstack/ipv4"
)

// Listener handles one UDP datagram addressed to a local port. Returning
// keep=false deregisters the listener immediately after this call returns —
// used by one-shot request/response exchanges (a single DNS-style query) that
// should not keep a port bound once answered.
type Listener func(now int64, srcIP netip.Addr, srcPort uint16, payload []byte) (keep bool, err error)

// Rx validates incoming UDP datagrams and demultiplexes them by local
// destination port. At most one listener may be registered per port.
type Rx struct {
	mu        sync.RWMutex
	listeners map[uint16]Listener
}

// NewRx returns an empty Rx ready to accept listener registrations.
func NewRx() *Rx {
	return &Rx{listeners: make(map[uint16]Listener)}
}

// Register installs listener for localPort. It panics if a listener is
// already registered for that port.
func (rx *Rx) Register(localPort uint16, listener Listener) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	if _, exists := rx.listeners[localPort]; exists {
		panic("udp: duplicate listener registration for port")
	}
	rx.listeners[localPort] = listener
}

// Deregister removes any listener registered for localPort.
func (rx *Rx) Deregister(localPort uint16) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	delete(rx.listeners, localPort)
}

// Recv parses buf as a UDP datagram (the IPv4 payload) received from srcIP
// aboard ifrm, validates it against its listener's port, and forwards it.
// A zero UDP checksum field is accepted as-is (checksum disabled, permitted
// by RFC 768 over IPv4). If the listener returns keep=false it is
// deregistered before Recv returns.
func (rx *Rx) Recv(now int64, srcIP netip.Addr, ifrm ipv4.Frame, buf []byte) error {
	frm, err := NewFrame(buf)
	if err != nil {
		return etherstack.NewRxError(etherstack.RxInvalidLength, err)
	}
	var v etherstack.Validator
	frm.ValidateSize(&v)
	if v.HasError() {
		return etherstack.NewRxError(etherstack.RxInvalidLength, v.Err())
	}
	if cs := frm.CRC(); cs != 0 && frm.CalculateIPv4Checksum(ifrm) != cs {
		return etherstack.NewRxError(etherstack.RxInvalidChecksum, nil)
	}

	port := frm.DestinationPort()
	rx.mu.RLock()
	listener := rx.listeners[port]
	rx.mu.RUnlock()
	if listener == nil {
		return etherstack.NewRxError(etherstack.RxNoListener, nil)
	}
	keep, err := listener(now, srcIP, frm.SourcePort(), frm.Payload())
	if !keep {
		rx.Deregister(port)
	}
	return err
}
