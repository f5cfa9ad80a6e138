package stack

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/soypat/etherstack/datalink"
)

func TestStackUdpRoundTripThroughRouting(t *testing.T) {
	linkA, linkB := datalink.Pipe()

	s := NewStack()
	ifaceA, err := New(Config{HardwareAddr: [6]byte{1, 1, 1, 1, 1, 1}, Addr: netip.MustParseAddr("10.0.0.1"), MTU: 1500, Datalink: linkA})
	if err != nil {
		t.Fatal(err)
	}
	ifaceB, err := New(Config{HardwareAddr: [6]byte{2, 2, 2, 2, 2, 2}, Addr: netip.MustParseAddr("10.0.0.2"), MTU: 1500, Datalink: linkB})
	if err != nil {
		t.Fatal(err)
	}
	go pumpReceive(ifaceA, linkA)
	go pumpReceive(ifaceB, linkB)
	defer linkA.Close()
	defer linkB.Close()

	s.AddInterface(ifaceA, netip.MustParsePrefix("10.0.0.0/24"))
	idB := s.AddInterface(ifaceB, netip.MustParsePrefix("10.0.0.0/24"))

	socketOnB, err := s.UdpListen(idB, 7777)
	if err != nil {
		t.Fatalf("UdpListen on B: %s", err)
	}
	defer socketOnB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	udpTx, err := s.UdpTx(ctx, netip.MustParseAddr("10.0.0.2"))
	if err != nil {
		t.Fatalf("UdpTx: %s", err)
	}
	if err := udpTx.Send(6000, 7777, len("routed"), func(buf []byte) error {
		copy(buf, "routed")
		return nil
	}); err != nil {
		t.Fatalf("Send: %s", err)
	}

	srcIP, _, payload, err := socketOnB.RecvFrom(ctx)
	if err != nil {
		t.Fatalf("RecvFrom: %s", err)
	}
	if srcIP != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("want source 10.0.0.1, got %v", srcIP)
	}
	if string(payload) != "routed" {
		t.Errorf("want payload %q, got %q", "routed", payload)
	}
}

func TestStackAddRouteUnknownInterface(t *testing.T) {
	s := NewStack()
	err := s.AddRoute(99, netip.MustParsePrefix("10.0.0.0/24"), netip.Addr{})
	if err == nil {
		t.Error("want an error adding a route to an unregistered interface id")
	}
}

func TestStackRecvUnknownInterface(t *testing.T) {
	s := NewStack()
	err := s.Recv(0, 42, nil)
	if err == nil {
		t.Error("want an error receiving on an unregistered interface id")
	}
}
