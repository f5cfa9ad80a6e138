// Package icmp implements ICMPv4 message parsing, construction and checksumming. See [RFC792].
//
// [RFC792]: https://tools.ietf.org/html/rfc792
package icmp

import (
	"encoding/binary"
	"errors"

	"github.com/soypat/etherstack"
)

// Type identifies the kind of ICMP message.
type Type uint8

const (
	TypeEchoReply Type = 0 // echo reply
	TypeEcho      Type = 8 // echo

	TypeDestinationUnreachable Type = 3 // destination unreachable
	TypeSourceQuench           Type = 4 // source quench
	TypeRedirect               Type = 5 // redirect

	TypeTimeExceeded     Type = 11 // time exceeded
	TypeParameterProblem Type = 12 // parameter problem

	TypeTimestamp      Type = 13 // timestamp
	TypeTimestampReply Type = 14 // timestamp reply

	TypeInfoRequest      Type = 15 // information request
	TypeInfoRequestReply Type = 16 // information request reply
)

func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "echo reply"
	case TypeEcho:
		return "echo"
	case TypeDestinationUnreachable:
		return "destination unreachable"
	case TypeSourceQuench:
		return "source quench"
	case TypeRedirect:
		return "redirect"
	case TypeTimeExceeded:
		return "time exceeded"
	case TypeParameterProblem:
		return "parameter problem"
	case TypeTimestamp:
		return "timestamp"
	case TypeTimestampReply:
		return "timestamp reply"
	case TypeInfoRequest:
		return "information request"
	case TypeInfoRequestReply:
		return "information request reply"
	default:
		return "unknown"
	}
}

type CodeTimeExceeded uint8

const (
	CodeExceededInTransit  CodeTimeExceeded = iota // TTL exceeded in transit
	CodeFragmentReassembly                         // fragment reassembly time exceeded
)

type CodeDestinationUnreachable uint8

const (
	CodeNetUnreachable      CodeDestinationUnreachable = iota // net unreachable
	CodeHostUnreachable                                       // host unreachable
	CodeProtoUnreachable                                      // protocol unreachable
	CodePortUnreachable                                       // port unreachable
	CodeFragNeededAndDFSet                                    // fragmentation needed and DF set
	CodeSourceRouteFailed                                     // source route failed
)

type CodeRedirect uint8

const (
	CodeRedirectForNetwork       CodeRedirect = iota // redirect for network
	CodeRedirectForHost                               // redirect for host
	CodeRedirectForToSAndNetwork                       // redirect for ToS+network
	CodeRedirectToSAndHost                             // redirect for ToS+host
)

var errShortFrame = errors.New("icmp: short frame")

const sizeHeader = 8

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer is smaller than the 8-byte ICMP header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an ICMPv4 message.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) Type() Type { return Type(frm.buf[0]) }

func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

func (frm Frame) Code() uint8 { return frm.buf[1] }

func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field of the frame.
func (frm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(frm.buf[2:4])
}

// SetCRC sets the checksum field of the frame.
func (frm Frame) SetCRC(crc uint16) {
	binary.BigEndian.PutUint16(frm.buf[2:4], crc)
}

// CalculateCRC computes the checksum of the whole message, treating the
// checksum field itself as zero as required by RFC 792.
func (frm Frame) CalculateCRC() uint16 {
	var crc etherstack.CRC791
	crc.AddUint16(binary.BigEndian.Uint16(frm.buf[0:2]))
	crc.Write(frm.buf[4:])
	return crc.Sum16()
}

// Payload returns the bytes following the 4-byte type, code and checksum fields
// (the rest-of-header field plus any data); callers that know the message type
// narrow further.
func (frm Frame) Payload() []byte { return frm.buf[4:] }

// ClearHeader zeros the fixed 8-byte header.
func (frm Frame) ClearHeader() {
	for i := range frm.buf[:sizeHeader] {
		frm.buf[i] = 0
	}
}

// ValidateSize checks that buf is at least the minimal ICMP header size.
func (frm Frame) ValidateSize(v *etherstack.Validator) {
	if len(frm.buf) < sizeHeader {
		v.AddError(errShortFrame)
	}
}

// FrameDestinationUnreachable views a Frame of type TypeDestinationUnreachable.
type FrameDestinationUnreachable struct {
	Frame
}

func (frm FrameDestinationUnreachable) Code() CodeDestinationUnreachable {
	return CodeDestinationUnreachable(frm.Frame.Code())
}

func (frm FrameDestinationUnreachable) SetCode(code CodeDestinationUnreachable) {
	frm.Frame.SetCode(uint8(code))
}

// FrameEcho views a Frame of type TypeEcho or TypeEchoReply.
type FrameEcho struct {
	Frame
}

func (frm FrameEcho) Identifier() uint16 {
	return binary.BigEndian.Uint16(frm.buf[4:6])
}

func (frm FrameEcho) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(frm.buf[4:6], id)
}

func (frm FrameEcho) SequenceNumber() uint16 {
	return binary.BigEndian.Uint16(frm.buf[6:8])
}

func (frm FrameEcho) SetSequenceNumber(seq uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], seq)
}

// Data returns the echo payload, the bytes following identifier and sequence number.
func (frm FrameEcho) Data() []byte {
	return frm.buf[8:]
}
