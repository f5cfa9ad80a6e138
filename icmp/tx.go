package icmp

import "github.com/soypat/etherstack/ipv4"

// L3Sender is the lower-layer collaborator an ICMP Tx builds on: a sender
// already bound to one destination IPv4 address. Satisfied by *ipv4.Tx.
type L3Sender interface {
	Send(proto ipv4.IPProto, payloadSize int, build func(payload []byte) error) error
}

// Tx builds and sends ICMP messages to the one destination its underlying
// sender is bound to.
type Tx struct {
	sender  L3Sender
	nextSeq uint16
}

// NewTx returns a Tx sending through sender.
func NewTx(sender L3Sender) *Tx {
	return &Tx{sender: sender}
}

// Ping sends an Echo Request carrying identifier id and data, returning the
// sequence number used (the identifier is id as given; the sequence starts at
// 0 and increments per call on this Tx).
func (tx *Tx) Ping(id uint16, data []byte) (seq uint16, err error) {
	seq = tx.nextSeq
	tx.nextSeq++
	return seq, tx.send(TypeEcho, 0, id, seq, data)
}

// Reply answers an Echo Request, echoing id, seq and data back verbatim.
func (tx *Tx) Reply(id, seq uint16, data []byte) error {
	return tx.send(TypeEchoReply, 0, id, seq, data)
}

func (tx *Tx) send(t Type, code uint8, id, seq uint16, data []byte) error {
	size := sizeHeader + len(data)
	return tx.sender.Send(ipv4.IPProtoICMP, size, func(buf []byte) error {
		frm, err := NewFrame(buf)
		if err != nil {
			return err
		}
		frm.ClearHeader()
		frm.SetType(t)
		frm.SetCode(code)
		echo := FrameEcho{frm}
		echo.SetIdentifier(id)
		echo.SetSequenceNumber(seq)
		copy(echo.Data(), data)
		frm.SetCRC(0)
		frm.SetCRC(frm.CalculateCRC())
		return nil
	})
}
