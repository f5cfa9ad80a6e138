//go:build linux

package datalink

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// RawSocket is a Provider backed by an AF_PACKET raw socket bound to a named
// network interface, sending and receiving whole Ethernet frames including
// their header. Grounded on the same socket family as a userspace bridge
// that attaches to an existing NIC, rebuilt here on golang.org/x/sys/unix
// instead of raw syscall numbers.
type RawSocket struct {
	fd    int
	index int
	name  string
}

// OpenRawSocket binds a raw socket to the named interface (e.g. "eth0").
func OpenRawSocket(name string) (*RawSocket, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("datalink: %w", err)
	}
	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, fmt.Errorf("datalink: socket: %w", err)
	}
	sa := &unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("datalink: bind: %w", err)
	}
	return &RawSocket{fd: fd, index: iface.Index, name: iface.Name}, nil
}

// Read blocks until one frame is available, copying it into buf.
func (r *RawSocket) Read(buf []byte) (int, error) {
	return unix.Read(r.fd, buf)
}

// Send allocates one scratch buffer of packetSize bytes, invokes build to
// fill it count times, writing the result to the socket after each call.
func (r *RawSocket) Send(count, packetSize int, build func(buf []byte) error) error {
	buf := make([]byte, packetSize)
	for i := 0; i < count; i++ {
		if err := build(buf); err != nil {
			return err
		}
		if _, err := unix.Write(r.fd, buf); err != nil {
			return fmt.Errorf("datalink: write: %w", err)
		}
	}
	return nil
}

// Close releases the underlying socket.
func (r *RawSocket) Close() error {
	return unix.Close(r.fd)
}

func htons(i int) uint16 {
	v := uint16(i)
	return (v<<8)&0xff00 | v>>8
}
