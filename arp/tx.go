package arp

import (
	"net/netip"

	"github.com/soypat/etherstack/ethernet"
)

// L2Sender is the lower-layer collaborator Tx builds on. Satisfied by *ethernet.Tx.
type L2Sender interface {
	Send(count, payloadSize int, build func(payload []byte) error) error
}

// Tx builds and sends IPv4-over-Ethernet ARP requests and replies.
type Tx struct {
	sender L2Sender
}

// NewTx returns a Tx sending ARP packets through sender.
func NewTx(sender L2Sender) *Tx {
	return &Tx{sender: sender}
}

// Request broadcasts a request asking who owns targetIP, claiming ourIP/ourHW.
func (tx *Tx) Request(ourIP netip.Addr, ourHW [6]byte, targetIP netip.Addr) error {
	return tx.send(OpRequest, ourHW, ourIP, [6]byte{}, targetIP)
}

// Reply answers a request received from requesterIP/requesterHW, asserting
// that ownerIP resolves to ownerHW.
func (tx *Tx) Reply(requesterIP netip.Addr, requesterHW [6]byte, ownerIP netip.Addr, ownerHW [6]byte) error {
	return tx.send(OpReply, ownerHW, ownerIP, requesterHW, requesterIP)
}

func (tx *Tx) send(op Operation, senderHW [6]byte, senderIP netip.Addr, targetHW [6]byte, targetIP netip.Addr) error {
	return tx.sender.Send(1, sizeHeaderv4, func(buf []byte) error {
		frm, err := NewFrame(buf)
		if err != nil {
			return err
		}
		frm.ClearHeader()
		frm.SetHardware(1, 6)
		frm.SetProtocol(ethernet.TypeIPv4, 4)
		frm.SetOperation(op)
		fsHW, fsProto := frm.Sender4()
		*fsHW = senderHW
		*fsProto = senderIP.As4()
		ftHW, ftProto := frm.Target4()
		*ftHW = targetHW
		*ftProto = targetIP.As4()
		return nil
	})
}
