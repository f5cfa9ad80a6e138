package udp

// sizeHeader is the fixed size in bytes of a UDP header: source port,
// destination port, length and checksum, each 2 bytes.
const sizeHeader = 8
