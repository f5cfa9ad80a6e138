package udp

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/soypat/etherstack"
	"github.com/soypat/etherstack/ipv4"
)

func pseudoHeader(src, dst [4]byte) ipv4.Frame {
	var hdr [20]byte
	phdr, _ := ipv4.NewFrame(hdr[:])
	*phdr.SourceAddr() = src
	*phdr.DestinationAddr() = dst
	phdr.SetProtocol(ipv4.IPProtoUDP)
	return phdr
}

func TestRxDeliversToRegisteredPort(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	sender := &fakeL3Sender{src: src, dst: dst}
	tx := NewTx(sender)
	payload := []byte("payload")
	if err := tx.Send(1234, 53, len(payload), func(buf []byte) error {
		copy(buf, payload)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	rx := NewRx()
	var gotPort uint16
	var gotPayload []byte
	rx.Register(53, func(now int64, srcIP netip.Addr, srcPort uint16, payload []byte) (bool, error) {
		gotPort = srcPort
		gotPayload = append([]byte(nil), payload...)
		return true, nil
	})
	ifrm := pseudoHeader(src, dst)
	if err := rx.Recv(0, netip.AddrFrom4(src), ifrm, sender.sent[0]); err != nil {
		t.Fatalf("Recv: %s", err)
	}
	if gotPort != 1234 {
		t.Errorf("want source port 1234, got %d", gotPort)
	}
	if string(gotPayload) != "payload" {
		t.Errorf("want payload %q, got %q", "payload", gotPayload)
	}
}

func TestRxDeregistersOnKeepFalse(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	sender := &fakeL3Sender{src: src, dst: dst}
	tx := NewTx(sender)
	tx.Send(1, 53, 2, func(buf []byte) error { copy(buf, []byte{1, 2}); return nil })

	rx := NewRx()
	calls := 0
	rx.Register(53, func(now int64, srcIP netip.Addr, srcPort uint16, payload []byte) (bool, error) {
		calls++
		return false, nil
	})
	ifrm := pseudoHeader(src, dst)
	if err := rx.Recv(0, netip.AddrFrom4(src), ifrm, sender.sent[0]); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("want 1 delivery, got %d", calls)
	}

	tx.Send(1, 53, 2, func(buf []byte) error { copy(buf, []byte{3, 4}); return nil })
	err := rx.Recv(0, netip.AddrFrom4(src), ifrm, sender.sent[1])
	var rxErr *etherstack.RxError
	if !errors.As(err, &rxErr) || rxErr.Kind != etherstack.RxNoListener {
		t.Fatalf("want RxNoListener after keep=false deregistered the port, got %v", err)
	}
	if calls != 1 {
		t.Errorf("want no further delivery after deregistration, got %d calls", calls)
	}
}

func TestRxAcceptsZeroChecksum(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	sender := &fakeL3Sender{src: src, dst: dst}
	tx := NewTx(sender)
	tx.Send(1, 53, 2, func(buf []byte) error { copy(buf, []byte{1, 2}); return nil })
	raw := sender.sent[0]
	frm, _ := NewFrame(raw)
	frm.SetCRC(0)

	rx := NewRx()
	rx.Register(53, func(now int64, srcIP netip.Addr, srcPort uint16, payload []byte) (bool, error) {
		return true, nil
	})
	ifrm := pseudoHeader(src, dst)
	if err := rx.Recv(0, netip.AddrFrom4(src), ifrm, raw); err != nil {
		t.Errorf("want a zero checksum to be accepted (checksum disabled), got %v", err)
	}
}

func TestRxRejectsBadChecksum(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	sender := &fakeL3Sender{src: src, dst: dst}
	tx := NewTx(sender)
	tx.Send(1, 53, 2, func(buf []byte) error { copy(buf, []byte{1, 2}); return nil })
	raw := sender.sent[0]
	frm, _ := NewFrame(raw)
	frm.SetCRC(frm.CRC() ^ 0xffff)

	rx := NewRx()
	rx.Register(53, func(now int64, srcIP netip.Addr, srcPort uint16, payload []byte) (bool, error) {
		return true, nil
	})
	ifrm := pseudoHeader(src, dst)
	err := rx.Recv(0, netip.AddrFrom4(src), ifrm, raw)
	var rxErr *etherstack.RxError
	if !errors.As(err, &rxErr) || rxErr.Kind != etherstack.RxInvalidChecksum {
		t.Fatalf("want RxInvalidChecksum, got %v", err)
	}
}
