package arp

import (
	"net/netip"
	"testing"
)

func TestRxRecordsSenderMapping(t *testing.T) {
	table := NewTable()
	rx := NewRx(table, nil, nil)

	senderIP := netip.MustParseAddr("192.168.1.20")
	senderHW := [6]byte{1, 2, 3, 4, 5, 6}
	sender := &fakeL2Sender{}
	reqTx := NewTx(sender)
	if err := reqTx.Request(senderIP, senderHW, netip.MustParseAddr("192.168.1.1")); err != nil {
		t.Fatal(err)
	}

	if err := rx.Recv(0, sender.sent[0]); err != nil {
		t.Fatalf("Recv: %s", err)
	}
	got, ok := table.Peek(senderIP)
	if !ok || got != senderHW {
		t.Errorf("want sender mapping recorded: %v, true; got %v, %v", senderHW, got, ok)
	}
}

func TestRxAnswersRequestForLocalAddress(t *testing.T) {
	table := NewTable()
	ourIP := netip.MustParseAddr("192.168.1.1")
	ourHW := [6]byte{9, 9, 9, 9, 9, 9}
	localAddr := func(ip netip.Addr) ([6]byte, bool) {
		if ip == ourIP {
			return ourHW, true
		}
		return [6]byte{}, false
	}
	replySender := &fakeL2Sender{}
	rx := NewRx(table, localAddr, NewTx(replySender))

	requestSender := &fakeL2Sender{}
	requesterIP := netip.MustParseAddr("192.168.1.20")
	requesterHW := [6]byte{1, 2, 3, 4, 5, 6}
	NewTx(requestSender).Request(requesterIP, requesterHW, ourIP)

	if err := rx.Recv(0, requestSender.sent[0]); err != nil {
		t.Fatalf("Recv: %s", err)
	}
	if len(replySender.sent) != 1 {
		t.Fatalf("want a reply sent, got %d frames", len(replySender.sent))
	}
	frm, err := NewFrame(replySender.sent[0])
	if err != nil {
		t.Fatal(err)
	}
	if frm.Operation() != OpReply {
		t.Errorf("want OpReply, got %v", frm.Operation())
	}
	senderHW, senderProto := frm.Sender4()
	if *senderHW != ourHW || netip.AddrFrom4(*senderProto) != ourIP {
		t.Errorf("want reply to assert our own address %v/%v, got %v/%v", ourHW, ourIP, *senderHW, *senderProto)
	}
	targetHW, targetProto := frm.Target4()
	if *targetHW != requesterHW || netip.AddrFrom4(*targetProto) != requesterIP {
		t.Errorf("want reply targeted at requester %v/%v, got %v/%v", requesterHW, requesterIP, *targetHW, *targetProto)
	}
}

func TestRxIgnoresRequestForUnknownAddress(t *testing.T) {
	table := NewTable()
	localAddr := func(ip netip.Addr) ([6]byte, bool) { return [6]byte{}, false }
	replySender := &fakeL2Sender{}
	rx := NewRx(table, localAddr, NewTx(replySender))

	requestSender := &fakeL2Sender{}
	NewTx(requestSender).Request(netip.MustParseAddr("192.168.1.20"), [6]byte{1}, netip.MustParseAddr("192.168.1.1"))

	if err := rx.Recv(0, requestSender.sent[0]); err != nil {
		t.Fatalf("Recv: %s", err)
	}
	if len(replySender.sent) != 0 {
		t.Errorf("want no reply for an address we don't own, got %d", len(replySender.sent))
	}
}
