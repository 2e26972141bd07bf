package spdy

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds, per spec §7. Connection-fatal kinds are wrapped with
// github.com/pkg/errors so a stack trace is attached at the point of
// failure, which is the only place it is still cheap to capture one.
type ErrorKind int

const (
	// TransportError: underlying I/O failure.
	TransportError ErrorKind = iota
	// ConnectionEnd: peer closed the transport (clean EOF).
	ConnectionEnd
	// ProtocolError: framer parse failure, or a frame referencing an
	// unknown stream.
	ProtocolError
	// HeaderCompression: the header codec failed to compress or
	// decompress a header block.
	HeaderCompression
	// RstStream: the peer reset this stream.
	RstStream
	// DoubleResponse: a second SYN_REPLY arrived on one stream.
	DoubleResponse
	// Cancelled: the application called Request.Close.
	Cancelled
	// AlreadySent: Connection.Send called with a Request that is
	// already bound to a connection.
	AlreadySent
)

func (k ErrorKind) String() string {
	switch k {
	case TransportError:
		return "TransportError"
	case ConnectionEnd:
		return "ConnectionEnd"
	case ProtocolError:
		return "ProtocolError"
	case HeaderCompression:
		return "HeaderCompression"
	case RstStream:
		return "RstStream"
	case DoubleResponse:
		return "DoubleResponse"
	case Cancelled:
		return "Cancelled"
	case AlreadySent:
		return "AlreadySent"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type delivered to delegates. Kind
// identifies which of spec §7's rows produced it; Err, if non-nil, is
// the underlying cause (a transport error, a framer error, ...).
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, err error) *Error {
	if err != nil {
		err = errors.WithStack(err)
	}
	return &Error{Kind: kind, Err: err}
}

func newErrorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return newError(kind, fmt.Errorf(format, args...))
}
