package etherstack

import "encoding/binary"

// CRC791 implements the checksum algorithm defined by RFC 791. The checksum
// for IPv4/ICMP/UDP/TCP is the 16-bit ones' complement of the ones' complement
// sum of all 16-bit words in the header (and, for UDP/TCP, a pseudo-header).
// In case of an uneven number of octets the last word is LSB padded with zeros.
//
// The zero value of CRC791 is ready to use.
type CRC791 struct {
	sum uint32
}

// foldCarries collapses the accumulated 32-bit sum's carries into a 16-bit
// ones'-complement checksum.
func foldCarries(sum uint32) uint16 {
	sum = (sum & 0xffff) + sum>>16
	// the max value of sum at this point is 0x1fffe, so an additional round is enough
	return ^uint16(sum + sum>>16)
}

// addWords accumulates the big-endian 16-bit words of buf onto base. buf must
// have even length.
func addWords(base uint32, buf []byte) uint32 {
	for i := 0; i < len(buf); i += 2 {
		base += uint32(binary.BigEndian.Uint16(buf[i:]))
	}
	return base
}

// addTail folds a trailing odd byte (the zero-padded high byte of a final
// 16-bit word) onto base, if present.
func addTail(base uint32, buf []byte) uint32 {
	if len(buf)&1 != 0 {
		base += uint32(buf[len(buf)-1]) << 8
	}
	return base
}

// Write adds the bytes in buf to the running checksum. If buf has an odd
// length the last byte is treated as the high byte of a zero-padded 16-bit word.
func (c *CRC791) Write(buf []byte) {
	even := len(buf) - len(buf)&1
	c.sum = addTail(addWords(c.sum, buf[:even]), buf)
}

// WriteEven adds the bytes in buf to the running checksum. buf must have even length or this panics.
func (c *CRC791) WriteEven(buf []byte) {
	if len(buf)&1 != 0 {
		panic("etherstack: odd length passed to WriteEven")
	}
	c.sum = addWords(c.sum, buf)
}

// AddUint32 adds a 32 bit value to the running checksum interpreted as BigEndian (network order).
func (c *CRC791) AddUint32(value uint32) {
	c.AddUint16(uint16(value >> 16))
	c.AddUint16(uint16(value))
}

// AddUint16 adds a 16 bit value to the running checksum interpreted as BigEndian (network order).
func (c *CRC791) AddUint16(value uint16) {
	c.sum += uint32(value)
}

// Sum16 calculates the checksum with the data written to c thus far.
func (c *CRC791) Sum16() uint16 {
	return foldCarries(c.sum)
}

// PayloadSum16 returns the checksum resulting from adding the bytes in buf to the running checksum, without mutating c.
func (c *CRC791) PayloadSum16(buf []byte) uint16 {
	even := len(buf) - len(buf)&1
	sum := addTail(addWords(c.sum, buf[:even]), buf)
	return foldCarries(sum)
}

// Reset zeros out the CRC791, resetting it to the initial state.
func (c *CRC791) Reset() { *c = CRC791{} }

// NeverZeroChecksum ensures that the given checksum is not zero, by returning 0xffff instead.
// 0x0000 and 0xffff represent the same value in ones' complement arithmetic, and a
// zero checksum field means "no checksum" on the wire for UDP over IPv4.
func NeverZeroChecksum(sum16 uint16) uint16 {
	if sum16 == 0 {
		return 0xffff
	}
	return sum16
}
