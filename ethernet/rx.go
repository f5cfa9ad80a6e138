package ethernet

import (
	"sync"

	"github.com/soypat/etherstack"
)

// Listener handles one Ethernet payload once its header has been parsed and stripped.
// now is a monotonic receive timestamp (nanoseconds); payload is the frame's Ethernet
// payload region (VLAN-stripped if present).
type Listener func(now int64, payload []byte) error

// Rx is the root of the receive dispatch tree: it parses the Ethernet header and
// forwards the payload to at most one listener per ethertype.
type Rx struct {
	mu        sync.RWMutex
	listeners map[Type]Listener
}

// NewRx returns an empty Rx ready to accept listener registrations.
func NewRx() *Rx {
	return &Rx{listeners: make(map[Type]Listener)}
}

// Register installs listener for ethertype et. It panics if a listener is already
// registered for et — registering two listeners for the same ethertype is a
// programming error, not a runtime condition to recover from.
func (rx *Rx) Register(et Type, listener Listener) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	if _, exists := rx.listeners[et]; exists {
		panic("ethernet: duplicate listener registration for ethertype " + et.String())
	}
	rx.listeners[et] = listener
}

// Deregister removes any listener registered for ethertype et.
func (rx *Rx) Deregister(et Type) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	delete(rx.listeners, et)
}

// Recv parses buf as an Ethernet frame and dispatches its payload to the registered
// listener for its ethertype. Unknown ethertypes yield an RxNoListener error; callers
// (the receive loop) should log and continue rather than treat this as fatal.
func (rx *Rx) Recv(now int64, buf []byte) error {
	frm, err := NewFrame(buf)
	if err != nil {
		return etherstack.NewRxError(etherstack.RxInvalidLength, err)
	}
	var v etherstack.Validator
	frm.ValidateSize(&v)
	if v.HasError() {
		return etherstack.NewRxError(etherstack.RxInvalidLength, v.Err())
	}
	et := frm.EtherTypeOrSize()
	rx.mu.RLock()
	listener := rx.listeners[et]
	rx.mu.RUnlock()
	if listener == nil {
		return etherstack.NewRxError(etherstack.RxNoListener, nil)
	}
	return listener(now, frm.Payload())
}
