package ipv4

import (
	"sync"

	"github.com/soypat/etherstack"
)

// L2Sender is the lower-layer collaborator contract Tx builds on: it allocates
// count buffers of payloadSize bytes, invokes build on each to fill the IPv4
// payload region, and transmits them. Satisfied by *ethernet.Tx.
type L2Sender interface {
	Send(count, payloadSize int, build func(payload []byte) error) error
}

// defaultTTL is the hop limit stamped on outgoing datagrams unless a Tx is
// given another one with SetTTL; this stack does not expose per-socket TTL control.
const defaultTTL = 40

// Tx builds and, if necessary, fragments outgoing IPv4 datagrams addressed
// from src to dst, sending each resulting packet through sender.
type Tx struct {
	mu     sync.Mutex
	sender L2Sender
	src    [4]byte
	dst    [4]byte
	mtu    int
	nextID uint16
	ttl    uint8
}

// NewTx returns a Tx sending from src to dst, fragmenting datagrams larger
// than mtu (the link's maximum transmission unit, header included).
func NewTx(sender L2Sender, src, dst [4]byte, mtu int) *Tx {
	return &Tx{sender: sender, src: src, dst: dst, mtu: mtu, ttl: defaultTTL}
}

// SetTTL overrides the hop limit used for subsequent sends.
func (tx *Tx) SetTTL(ttl uint8) { tx.ttl = ttl }

// SourceAddr returns the source address datagrams are sent from.
func (tx *Tx) SourceAddr() [4]byte { return tx.src }

// DestinationAddr returns the address datagrams are sent to.
func (tx *Tx) DestinationAddr() [4]byte { return tx.dst }

// Send writes a payloadSize-byte datagram of protocol proto, invoking build once
// to fill the logical (unfragmented) payload. Datagrams that do not fit within
// the configured MTU are split into multiple fragments, each sent as its own
// packet sharing one IPv4 identification value.
func (tx *Tx) Send(proto IPProto, payloadSize int, build func(payload []byte) error) error {
	tx.mu.Lock()
	id := tx.nextID
	tx.nextID++
	tx.mu.Unlock()

	total := sizeHeader + payloadSize
	if total <= tx.mtu {
		return tx.sender.Send(1, total, func(buf []byte) error {
			frm, err := NewFrame(buf)
			if err != nil {
				return err
			}
			tx.writeHeader(frm, proto, id, NewFlags(false, false, 0))
			if err := build(buf[sizeHeader:]); err != nil {
				return err
			}
			tx.finalize(frm, total)
			return nil
		})
	}

	maxFragPayload := (tx.mtu - sizeHeader) &^ 7
	if maxFragPayload <= 0 {
		return etherstack.NewTxError(etherstack.TxTooLargePayload, nil)
	}

	// build must run once over the whole logical payload; stage it so each
	// fragment can copy its slice into its own wire buffer.
	staging := make([]byte, payloadSize)
	if err := build(staging); err != nil {
		return err
	}

	for off := 0; off < payloadSize; off += maxFragPayload {
		end := off + maxFragPayload
		if end > payloadSize {
			end = payloadSize
		}
		fragLen := end - off
		more := end < payloadSize
		err := tx.sender.Send(1, sizeHeader+fragLen, func(buf []byte) error {
			frm, err := NewFrame(buf)
			if err != nil {
				return err
			}
			tx.writeHeader(frm, proto, id, NewFlags(false, more, uint16(off/8)))
			copy(buf[sizeHeader:], staging[off:end])
			tx.finalize(frm, sizeHeader+fragLen)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) writeHeader(frm Frame, proto IPProto, id uint16, flags Flags) {
	frm.ClearHeader()
	frm.SetVersionAndIHL(4, 5)
	frm.SetToS(0)
	frm.SetID(id)
	frm.SetFlags(flags)
	frm.SetTTL(tx.ttl)
	frm.SetProtocol(proto)
	*frm.SourceAddr() = tx.src
	*frm.DestinationAddr() = tx.dst
}

func (tx *Tx) finalize(frm Frame, total int) {
	frm.SetTotalLength(uint16(total))
	frm.SetCRC(0)
	frm.SetCRC(frm.CalculateHeaderCRC())
}
