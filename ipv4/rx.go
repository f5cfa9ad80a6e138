package ipv4

import (
	"errors"
	"net/netip"
	"sync"

	"github.com/soypat/etherstack"
)

// Listener handles one fully reassembled IPv4 packet addressed to a local
// address, for one next-level protocol.
type Listener func(now int64, pkt Frame) error

type fragKey struct {
	src, dst netip.Addr
	id       uint16
}

// reassembly is owned exclusively by the goroutine driving Rx.Recv; it needs no lock.
type reassembly struct {
	buf            *etherstack.Buffer
	totalLength    int
	totalLengthSet bool
}

// Rx validates, reassembles and demultiplexes incoming IPv4 packets. The listener
// map may be mutated concurrently with Recv (interface setup/teardown) and is
// guarded by mu; reassembly state is touched only from the single goroutine
// driving Recv and needs no lock of its own.
type Rx struct {
	mu        sync.RWMutex
	listeners map[netip.Addr]map[IPProto]Listener
	reasm     map[fragKey]*reassembly
}

// NewRx returns an empty Rx ready to accept listener registrations.
func NewRx() *Rx {
	return &Rx{listeners: make(map[netip.Addr]map[IPProto]Listener)}
}

// Register installs listener for (addr, proto). It panics if a listener is
// already registered for that pair.
func (rx *Rx) Register(addr netip.Addr, proto IPProto, listener Listener) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	m := rx.listeners[addr]
	if m == nil {
		m = make(map[IPProto]Listener)
		rx.listeners[addr] = m
	}
	if _, exists := m[proto]; exists {
		panic("ipv4: duplicate listener registration for address/protocol")
	}
	m[proto] = listener
}

// Deregister removes any listener registered for (addr, proto).
func (rx *Rx) Deregister(addr netip.Addr, proto IPProto) {
	rx.mu.Lock()
	defer rx.mu.Unlock()
	if m := rx.listeners[addr]; m != nil {
		delete(m, proto)
	}
}

// Recv parses buf as an IPv4 packet (the Ethernet payload, header+data as seen
// on the wire), validates it, reassembles it if fragmented, and forwards the
// complete datagram to its listener. A nil error with no forwarding occurs
// while a fragmented datagram is still incomplete.
func (rx *Rx) Recv(now int64, buf []byte) error {
	frm, err := NewFrame(buf)
	if err != nil {
		return etherstack.NewRxError(etherstack.RxInvalidLength, err)
	}
	var v etherstack.Validator
	frm.ValidateExceptCRC(&v)
	if v.HasError() {
		return etherstack.NewRxError(etherstack.RxInvalidLength, v.Err())
	}
	if tl := int(frm.TotalLength()); tl < len(buf) {
		buf = buf[:tl]
		frm, _ = NewFrame(buf)
	}
	if frm.CalculateHeaderCRC() != frm.CRC() {
		return etherstack.NewRxError(etherstack.RxInvalidChecksum, nil)
	}

	flags := frm.Flags()
	if !flags.MoreFragments() && flags.FragmentOffset() == 0 {
		return rx.forward(now, frm)
	}
	complete, err := rx.reassemble(frm)
	if err != nil {
		return err
	}
	if complete == nil {
		return nil
	}
	return rx.forward(now, *complete)
}

func (rx *Rx) reassemble(frm Frame) (*Frame, error) {
	key := fragKey{
		src: netip.AddrFrom4(*frm.SourceAddr()),
		dst: netip.AddrFrom4(*frm.DestinationAddr()),
		id:  frm.ID(),
	}
	flags := frm.Flags()
	offset := int(flags.FragmentOffset()) * 8
	hl := frm.HeaderLength()
	payload := frm.Payload()

	if rx.reasm == nil {
		rx.reasm = make(map[fragKey]*reassembly)
	}
	r, ok := rx.reasm[key]
	if !ok {
		if offset != 0 {
			return nil, etherstack.NewRxError(etherstack.RxInvalidContent, errors.New("ipv4: first fragment seen is not at offset 0"))
		}
		r = &reassembly{buf: etherstack.NewBuffer(65535)}
		rx.reasm[key] = r
		if err := r.buf.Push(0, frm.RawData()[:hl+len(payload)]); err != nil {
			delete(rx.reasm, key)
			return nil, etherstack.NewRxError(etherstack.RxInvalidContent, err)
		}
	} else {
		writeOffset := hl + offset
		if err := r.buf.Push(writeOffset, payload); err != nil {
			delete(rx.reasm, key)
			return nil, etherstack.NewRxError(etherstack.RxInvalidContent, err)
		}
		if !flags.MoreFragments() {
			if r.totalLengthSet {
				delete(rx.reasm, key)
				return nil, etherstack.NewRxError(etherstack.RxInvalidContent, errors.New("ipv4: duplicate terminal fragment"))
			}
			r.totalLength = writeOffset + len(payload)
			r.totalLengthSet = true
		}
	}

	if r.totalLengthSet && r.buf.LowestMissing() >= r.totalLength {
		delete(rx.reasm, key)
		out, err := NewFrame(r.buf.Bytes()[:r.totalLength])
		if err != nil {
			return nil, etherstack.NewRxError(etherstack.RxInvalidLength, err)
		}
		out.SetFlags(out.Flags() &^ FlagMoreFragments)
		out.SetTotalLength(uint16(r.totalLength))
		out.SetCRC(0)
		out.SetCRC(out.CalculateHeaderCRC())
		return &out, nil
	}
	return nil, nil
}

func (rx *Rx) forward(now int64, frm Frame) error {
	dst := netip.AddrFrom4(*frm.DestinationAddr())
	rx.mu.RLock()
	var listener Listener
	if m := rx.listeners[dst]; m != nil {
		listener = m[frm.Protocol()]
	}
	rx.mu.RUnlock()
	if listener == nil {
		return etherstack.NewRxError(etherstack.RxNoListener, nil)
	}
	return listener(now, frm)
}
