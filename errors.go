package etherstack

import "fmt"

// TxKind enumerates the ways a send path can fail.
type TxKind uint8

const (
	_ TxKind = iota
	// TxInvalidTx indicates a Tx handle's captured barrier version is stale; the caller should reconstruct the send chain.
	TxInvalidTx
	// TxTooLargePayload indicates the payload does not fit the protocol's length field.
	TxTooLargePayload
	// TxIoError indicates the datalink writer failed.
	TxIoError
	// TxOther covers any other transmit failure.
	TxOther
)

func (k TxKind) String() string {
	switch k {
	case TxInvalidTx:
		return "invalid tx"
	case TxTooLargePayload:
		return "payload too large"
	case TxIoError:
		return "io error"
	case TxOther:
		return "other transmit error"
	default:
		return "unknown tx error"
	}
}

// TxError is returned by every send path in the stack. It wraps an optional
// underlying cause (e.g. the datalink I/O error for TxIoError).
type TxError struct {
	Kind  TxKind
	Cause error
}

func (e *TxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("etherstack: tx: %s: %s", e.Kind, e.Cause)
	}
	return "etherstack: tx: " + e.Kind.String()
}

func (e *TxError) Unwrap() error { return e.Cause }

// NewTxError constructs a TxError of the given kind, optionally wrapping cause.
func NewTxError(kind TxKind, cause error) *TxError { return &TxError{Kind: kind, Cause: cause} }

// RxKind enumerates the ways a receive path can fail.
type RxKind uint8

const (
	_ RxKind = iota
	// RxNoListener indicates nothing is registered for the (address, protocol) or port in question.
	RxNoListener
	// RxInvalidChecksum indicates a checksum mismatch.
	RxInvalidChecksum
	// RxInvalidLength indicates a size field is inconsistent with the available buffer.
	RxInvalidLength
	// RxInvalidContent indicates a content-level violation (e.g. an out-of-order fragment).
	RxInvalidContent
)

func (k RxKind) String() string {
	switch k {
	case RxNoListener:
		return "no listener"
	case RxInvalidChecksum:
		return "invalid checksum"
	case RxInvalidLength:
		return "invalid length"
	case RxInvalidContent:
		return "invalid content"
	default:
		return "unknown rx error"
	}
}

// RxError is returned (and logged, never panicked on) by every receive-side validation/dispatch step.
type RxError struct {
	Kind  RxKind
	Cause error
}

func (e *RxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("etherstack: rx: %s: %s", e.Kind, e.Cause)
	}
	return "etherstack: rx: " + e.Kind.String()
}

func (e *RxError) Unwrap() error { return e.Cause }

// NewRxError constructs an RxError of the given kind, optionally wrapping cause.
func NewRxError(kind RxKind, cause error) *RxError { return &RxError{Kind: kind, Cause: cause} }

// StackKind enumerates stack-level (as opposed to per-packet) failures.
type StackKind uint8

const (
	_ StackKind = iota
	// StackIllegalArgument indicates a duplicate IP, an absent local source, or similar caller error.
	StackIllegalArgument
	// StackNoRouteToHost indicates the routing table has no entry for the destination.
	StackNoRouteToHost
	// StackInvalidInterface indicates the named interface does not exist or was detached.
	StackInvalidInterface
)

func (k StackKind) String() string {
	switch k {
	case StackIllegalArgument:
		return "illegal argument"
	case StackNoRouteToHost:
		return "no route to host"
	case StackInvalidInterface:
		return "invalid interface"
	default:
		return "unknown stack error"
	}
}

// StackError describes a stack-level failure of one of the StackKind kinds. It
// may wrap a TxError or an I/O error surfaced from a lower layer. The stack
// package's Interface and Stack do not return it: they report their own
// failures as plain errors.
type StackError struct {
	Kind  StackKind
	Cause error
}

func (e *StackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("etherstack: stack: %s: %s", e.Kind, e.Cause)
	}
	return "etherstack: stack: " + e.Kind.String()
}

func (e *StackError) Unwrap() error { return e.Cause }

// NewStackError constructs a StackError of the given kind, optionally wrapping cause.
func NewStackError(kind StackKind, cause error) *StackError {
	return &StackError{Kind: kind, Cause: cause}
}
