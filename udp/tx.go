package udp

import "github.com/soypat/etherstack/ipv4"

// L3Sender is the lower-layer collaborator a UDP Tx builds on: a sender
// already bound to one (source, destination) IPv4 address pair. Satisfied by *ipv4.Tx.
type L3Sender interface {
	Send(proto ipv4.IPProto, payloadSize int, build func(payload []byte) error) error
	SourceAddr() [4]byte
	DestinationAddr() [4]byte
}

// Tx builds and sends UDP datagrams to the one destination its underlying
// sender is bound to.
type Tx struct {
	sender L3Sender
}

// NewTx returns a Tx sending through sender.
func NewTx(sender L3Sender) *Tx {
	return &Tx{sender: sender}
}

// Send writes a UDP datagram from srcPort to dstPort, invoking build once to
// fill the payload, and fills in the IPv4 pseudo-header checksum before
// handing the datagram to the IPv4 layer.
func (tx *Tx) Send(srcPort, dstPort uint16, payloadSize int, build func(payload []byte) error) error {
	total := sizeHeader + payloadSize
	return tx.sender.Send(ipv4.IPProtoUDP, total, func(buf []byte) error {
		frm, err := NewFrame(buf)
		if err != nil {
			return err
		}
		frm.ClearHeader()
		frm.SetSourcePort(srcPort)
		frm.SetDestinationPort(dstPort)
		frm.SetLength(uint16(total))
		frm.SetCRC(0)
		if err := build(buf[sizeHeader:]); err != nil {
			return err
		}

		var hdr [20]byte
		phdr, _ := ipv4.NewFrame(hdr[:])
		src, dst := tx.sender.SourceAddr(), tx.sender.DestinationAddr()
		*phdr.SourceAddr() = src
		*phdr.DestinationAddr() = dst
		phdr.SetProtocol(ipv4.IPProtoUDP)
		frm.SetCRC(frm.CalculateIPv4Checksum(phdr))
		return nil
	})
}
