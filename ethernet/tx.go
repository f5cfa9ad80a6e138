package ethernet

import "github.com/soypat/etherstack"

// Tx builds Ethernet frames around a versioned [etherstack.Tx], filling in the
// source/destination hardware addresses and ethertype on every send.
type Tx struct {
	tx        *etherstack.Tx
	src, dst  [6]byte
	etherType Type
}

// NewTx returns a Tx that sends frames from src to dst carrying etherType, delegating
// the actual buffer allocation and transmission to tx.
func NewTx(tx *etherstack.Tx, src, dst [6]byte, etherType Type) *Tx {
	return &Tx{tx: tx, src: src, dst: dst, etherType: etherType}
}

// Send allocates count buffers of payloadSize+header bytes, stamps the Ethernet
// header on each, and invokes build on the payload region of each buffer.
func (etx *Tx) Send(count, payloadSize int, build func(payload []byte) error) error {
	return etx.tx.Send(count, payloadSize+sizeHeaderNoVLAN, func(buf []byte) error {
		frm, err := NewFrame(buf)
		if err != nil {
			return err
		}
		*frm.DestinationHardwareAddr() = etx.dst
		*frm.SourceHardwareAddr() = etx.src
		frm.SetEtherType(etx.etherType)
		return build(buf[sizeHeaderNoVLAN : sizeHeaderNoVLAN+payloadSize])
	})
}

// SetDestination updates the destination hardware address used for subsequent sends.
func (etx *Tx) SetDestination(dst [6]byte) { etx.dst = dst }

// Destination returns the hardware address frames are currently addressed to.
func (etx *Tx) Destination() [6]byte { return etx.dst }
