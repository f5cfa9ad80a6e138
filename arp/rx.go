package arp

import (
	"net/netip"

	"github.com/soypat/etherstack"
	"github.com/soypat/etherstack/ethernet"
)

// LocalAddrFunc resolves whether ip is a local IPv4 address and, if so,
// returns its hardware address.
type LocalAddrFunc func(ip netip.Addr) (hwaddr [6]byte, ok bool)

// Rx parses incoming ARP frames. Every sender mapping it sees is recorded in
// table, except one whose sender IP is unspecified (0.0.0.0); requests
// targeting a local address are answered through tx.
type Rx struct {
	table     *Table
	localAddr LocalAddrFunc
	tx        *Tx
}

// NewRx returns an Rx that feeds resolutions into table and answers requests
// for addresses localAddr recognizes using tx.
func NewRx(table *Table, localAddr LocalAddrFunc, tx *Tx) *Rx {
	return &Rx{table: table, localAddr: localAddr, tx: tx}
}

// Recv parses buf as an ARP frame (the Ethernet payload for ethertype ARP).
// Only IPv4-over-Ethernet ARP (htype=1, ptype=IPv4) is supported; anything
// else is reported as invalid content rather than silently ignored.
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
	htype, _ := frm.Hardware()
	ptype, _ := frm.Protocol()
	if htype != 1 || ptype != ethernet.TypeIPv4 {
		return etherstack.NewRxError(etherstack.RxInvalidContent, nil)
	}

	senderHW, senderProto := frm.Sender4()
	senderIP := netip.AddrFrom4(*senderProto)
	if !senderIP.IsUnspecified() {
		rx.table.Insert(senderIP, *senderHW)
	}

	if frm.Operation() != OpRequest || rx.localAddr == nil || rx.tx == nil {
		return nil
	}
	_, targetProto := frm.Target4()
	targetIP := netip.AddrFrom4(*targetProto)
	ourHW, ok := rx.localAddr(targetIP)
	if !ok {
		return nil
	}
	return rx.tx.Reply(senderIP, *senderHW, targetIP, ourHW)
}
