package stack

import (
	"context"
	"errors"
	"net/netip"

	"github.com/soypat/etherstack/ethernet"
	"github.com/soypat/etherstack/icmp"
	"github.com/soypat/etherstack/ipv4"
	"github.com/soypat/etherstack/routing"
	"github.com/soypat/etherstack/udp"
)

// Stack composes multiple Interfaces behind a routing table, picking the
// outgoing interface for a destination by longest prefix match.
type Stack struct {
	routes      *routing.Table
	interfaces  map[int]*Interface
	nextIfaceID int
}

// NewStack returns an empty multi-interface Stack.
func NewStack() *Stack {
	return &Stack{routes: routing.NewTable(), interfaces: make(map[int]*Interface)}
}

// AddInterface registers iface as reachable for every address in prefix and
// returns an opaque interface id for later reference.
func (s *Stack) AddInterface(iface *Interface, prefix netip.Prefix) int {
	id := s.nextIfaceID
	s.nextIfaceID++
	s.interfaces[id] = iface
	s.routes.Insert(routing.Route{Prefix: prefix, Iface: id})
	return id
}

// AddRoute adds a route to an already-registered interface (ifaceID, as
// returned by AddInterface) for destinations in prefix, optionally via
// nextHop (zero Addr for on-link/direct delivery).
func (s *Stack) AddRoute(ifaceID int, prefix netip.Prefix, nextHop netip.Addr) error {
	if _, ok := s.interfaces[ifaceID]; !ok {
		return errors.New("stack: unknown interface id")
	}
	s.routes.Insert(routing.Route{Prefix: prefix, Iface: ifaceID, NextHop: nextHop})
	return nil
}

func (s *Stack) interfaceFor(dst netip.Addr) (*Interface, netip.Addr, error) {
	route, ok := s.routes.Lookup(dst)
	if !ok {
		return nil, netip.Addr{}, errors.New("stack: no route to host")
	}
	iface, ok := s.interfaces[route.Iface]
	if !ok {
		return nil, netip.Addr{}, errors.New("stack: route refers to unknown interface")
	}
	nextHop := dst
	if route.NextHop.IsValid() {
		nextHop = route.NextHop
	}
	return iface, nextHop, nil
}

// Recv feeds a received frame into the interface identified by ifaceID.
func (s *Stack) Recv(now int64, ifaceID int, buf []byte) error {
	iface, ok := s.interfaces[ifaceID]
	if !ok {
		return errors.New("stack: unknown interface id")
	}
	return iface.Recv(now, buf)
}

// Ipv4Tx returns a sender for datagrams addressed to dst, chosen by routing
// the destination to the best-matching interface and resolving the next
// hop's hardware address (blocking on ARP) if necessary.
func (s *Stack) Ipv4Tx(ctx context.Context, dst netip.Addr) (*ipv4.Tx, error) {
	iface, nextHop, err := s.interfaceFor(dst)
	if err != nil {
		return nil, err
	}
	mac, err := iface.ResolveHardwareAddr(ctx, nextHop)
	if err != nil {
		return nil, err
	}
	ethTx := iface.ethernetTx(mac, ethernet.TypeIPv4)
	return ipv4.NewTx(ethTx, iface.cfg.Addr.As4(), dst.As4(), iface.cfg.MTU), nil
}

// IcmpTx returns a sender of ICMP messages to dst via the routed interface.
func (s *Stack) IcmpTx(ctx context.Context, dst netip.Addr) (*icmp.Tx, error) {
	ipTx, err := s.Ipv4Tx(ctx, dst)
	if err != nil {
		return nil, err
	}
	return icmp.NewTx(ipTx), nil
}

// UdpListen binds a UDP socket to localPort on the interface identified by
// ifaceID.
func (s *Stack) UdpListen(ifaceID int, localPort uint16) (*udp.Socket, error) {
	iface, ok := s.interfaces[ifaceID]
	if !ok {
		return nil, errors.New("stack: unknown interface id")
	}
	return iface.UdpListen(localPort), nil
}

// UdpTx returns a Tx sending UDP datagrams to dst via the routed interface.
func (s *Stack) UdpTx(ctx context.Context, dst netip.Addr) (*udp.Tx, error) {
	ipTx, err := s.Ipv4Tx(ctx, dst)
	if err != nil {
		return nil, err
	}
	return udp.NewTx(ipTx), nil
}
