// Package stack assembles the protocol layers (Ethernet, ARP, IPv4, ICMP,
// UDP) into a single network Interface, and composes multiple interfaces
// behind a routing table in Stack.
package stack

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/soypat/etherstack"
	"github.com/soypat/etherstack/arp"
	"github.com/soypat/etherstack/ethernet"
	"github.com/soypat/etherstack/icmp"
	"github.com/soypat/etherstack/internal"
	"github.com/soypat/etherstack/ipv4"
	"github.com/soypat/etherstack/udp"
)

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// arpResolveTimeout bounds how long an auto-triggered ARP resolution (one
// the caller did not supply its own context for, such as an ICMP auto-reply)
// may block before giving up.
const arpResolveTimeout = 5 * time.Second

// Config configures a single network Interface.
type Config struct {
	// HardwareAddr is the interface's own MAC address.
	HardwareAddr [6]byte
	// Addr is the interface's local IPv4 address.
	Addr netip.Addr
	// MTU is the link's maximum transmission unit: the largest Ethernet
	// payload in bytes (header excluded). Must be at least 256.
	MTU int
	// Datalink performs the actual frame transmission.
	Datalink etherstack.DatalinkSender
	// Logger receives structured diagnostic events; defaults to slog.Default().
	Logger *slog.Logger
}

// Interface is one network attachment point: an Ethernet datalink, an ARP
// table and responder, an IPv4 dispatcher and per-destination sender
// builder, and the ICMP/UDP registries layered on top. It owns the single
// TxBarrier guarding every send on this link.
type Interface struct {
	cfg     Config
	log     *slog.Logger
	barrier *etherstack.TxBarrier

	ethRx    *ethernet.Rx
	ipRx     *ipv4.Rx
	icmpRx   *icmp.Rx
	udpRx    *udp.Rx
	arpTable *arp.Table
	arpTx    *arp.Tx

	mu    sync.Mutex
	addrs map[netip.Addr]bool
}

// New assembles an Interface from cfg.
func New(cfg Config) (*Interface, error) {
	if cfg.MTU < 256 {
		return nil, errors.New("stack: MTU must be at least 256")
	}
	if !cfg.Addr.Is4() {
		return nil, errors.New("stack: only IPv4 addresses are supported")
	}
	if cfg.Datalink == nil {
		return nil, errors.New("stack: Datalink is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	iface := &Interface{
		cfg:      cfg,
		log:      log,
		barrier:  etherstack.NewTxBarrier(cfg.Datalink),
		ethRx:    ethernet.NewRx(),
		ipRx:     ipv4.NewRx(),
		udpRx:    udp.NewRx(),
		arpTable: arp.NewTable(),
		addrs:    map[netip.Addr]bool{cfg.Addr: true},
	}
	iface.arpTx = arp.NewTx(iface.ethernetTx(broadcastMAC, ethernet.TypeARP))
	arpRx := arp.NewRx(iface.arpTable, iface.localHardwareAddr, iface.arpTx)
	iface.icmpRx = icmp.NewRx(iface.icmpTxFactory)

	iface.ethRx.Register(ethernet.TypeARP, arpRx.Recv)
	iface.ethRx.Register(ethernet.TypeIPv4, iface.ipRx.Recv)
	iface.ipRx.Register(cfg.Addr, ipv4.IPProtoICMP, iface.recvICMP)
	iface.ipRx.Register(cfg.Addr, ipv4.IPProtoUDP, iface.recvUDP)
	return iface, nil
}

// Addr returns the interface's local IPv4 address.
func (iface *Interface) Addr() netip.Addr { return iface.cfg.Addr }

// HardwareAddr returns the interface's MAC address.
func (iface *Interface) HardwareAddr() [6]byte { return iface.cfg.HardwareAddr }

// Recv feeds one received Ethernet frame (as seen on the wire, including its
// header) into the interface's dispatch tree.
func (iface *Interface) Recv(now int64, buf []byte) error {
	err := iface.ethRx.Recv(now, buf)
	if err != nil {
		hw := iface.cfg.HardwareAddr
		iface.log.Debug("stack: dropped received frame", "err", err, internal.SlogAddr6("iface", &hw))
	}
	return err
}

// InvalidateSends bumps the interface's TxBarrier, failing every Tx handle
// captured before this call. Call after anything that could make a cached
// send chain incorrect (e.g. the interface's own address changing).
func (iface *Interface) InvalidateSends() { iface.barrier.Bump() }

func (iface *Interface) localHardwareAddr(ip netip.Addr) ([6]byte, bool) {
	iface.mu.Lock()
	ok := iface.addrs[ip]
	iface.mu.Unlock()
	if !ok {
		return [6]byte{}, false
	}
	return iface.cfg.HardwareAddr, true
}

func (iface *Interface) ethernetTx(dst [6]byte, etherType ethernet.Type) *ethernet.Tx {
	return ethernet.NewTx(iface.barrier.NewTx(), iface.cfg.HardwareAddr, dst, etherType)
}

// ResolveHardwareAddr blocks until ip's hardware address is known, sending an
// ARP request if it is not already cached, or returns ctx's error if it is
// cancelled first.
func (iface *Interface) ResolveHardwareAddr(ctx context.Context, ip netip.Addr) ([6]byte, error) {
	if mac, ok := iface.arpTable.Peek(ip); ok {
		return mac, nil
	}
	target := ip.As4()
	iface.log.Debug("stack: resolving hardware address", internal.SlogAddr4("target", &target))
	if err := iface.arpTx.Request(iface.cfg.Addr, iface.cfg.HardwareAddr, ip); err != nil {
		return [6]byte{}, err
	}
	mac, err := iface.arpTable.Get(ctx, ip)
	if err != nil {
		iface.log.Debug("stack: hardware address resolution failed", "err", err, internal.SlogAddr4("target", &target))
		return [6]byte{}, err
	}
	iface.log.Debug("stack: resolved hardware address", internal.SlogAddr4("target", &target), internal.SlogAddr6("mac", &mac))
	return mac, nil
}

// Ipv4Tx returns a sender for datagrams addressed to dst, resolving dst's
// hardware address over ARP (blocking) if necessary.
func (iface *Interface) Ipv4Tx(ctx context.Context, dst netip.Addr) (*ipv4.Tx, error) {
	mac, err := iface.ResolveHardwareAddr(ctx, dst)
	if err != nil {
		return nil, err
	}
	ethTx := iface.ethernetTx(mac, ethernet.TypeIPv4)
	return ipv4.NewTx(ethTx, iface.cfg.Addr.As4(), dst.As4(), iface.cfg.MTU), nil
}

func (iface *Interface) icmpTxFactory(dst netip.Addr) (*icmp.Tx, error) {
	ctx, cancel := context.WithTimeout(context.Background(), arpResolveTimeout)
	defer cancel()
	ipTx, err := iface.Ipv4Tx(ctx, dst)
	if err != nil {
		return nil, err
	}
	return icmp.NewTx(ipTx), nil
}

func (iface *Interface) recvICMP(now int64, pkt ipv4.Frame) error {
	src := netip.AddrFrom4(*pkt.SourceAddr())
	return iface.icmpRx.Recv(now, src, pkt.Payload())
}

func (iface *Interface) recvUDP(now int64, pkt ipv4.Frame) error {
	src := netip.AddrFrom4(*pkt.SourceAddr())
	return iface.udpRx.Recv(now, src, pkt, pkt.Payload())
}

// IcmpTx returns a sender of ICMP messages to dst, resolving dst's hardware
// address over ARP (blocking) if necessary.
func (iface *Interface) IcmpTx(ctx context.Context, dst netip.Addr) (*icmp.Tx, error) {
	ipTx, err := iface.Ipv4Tx(ctx, dst)
	if err != nil {
		return nil, err
	}
	return icmp.NewTx(ipTx), nil
}

// RegisterIcmpListener adds listener for every ICMP message of type t
// received on this interface (in addition to the interface's built-in Echo
// Request auto-reply).
func (iface *Interface) RegisterIcmpListener(t icmp.Type, listener icmp.Listener) {
	iface.icmpRx.Register(t, listener)
}

// UdpListen binds a UDP socket to localPort on this interface.
func (iface *Interface) UdpListen(localPort uint16) *udp.Socket {
	return udp.Listen(iface.udpRx, localPort, iface.udpTxFactory)
}

func (iface *Interface) udpTxFactory(ctx context.Context, dst netip.Addr, _ uint16) (*udp.Tx, error) {
	ipTx, err := iface.Ipv4Tx(ctx, dst)
	if err != nil {
		return nil, err
	}
	return udp.NewTx(ipTx), nil
}
