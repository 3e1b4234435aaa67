package transport

import (
	"errors"
	"fmt"
)

// Kind is the closed set of transport failure categories. Every
// OS or network error surfaced by this package is translated into
// exactly one Kind; raw errors never cross the transport boundary
// unwrapped.
type Kind int

const (
	// Unknown is an uncategorized I/O failure.
	Unknown Kind = iota
	// NotOpen means a connection could not be established or an
	// operation was attempted on a transport that is not open.
	NotOpen
	// TimedOut means a bounded operation exceeded its deadline.
	TimedOut
	// EndOfFile means the peer closed the stream.
	EndOfFile
)

func (k Kind) String() string {
	switch k {
	case NotOpen:
		return "not open"
	case TimedOut:
		return "timed out"
	case EndOfFile:
		return "end of file"
	default:
		return "unknown"
	}
}

// Error is a transport failure: a Kind plus a human-readable
// message, optionally wrapping the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport %s: %s: %s", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("transport %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error is a deadline failure,
// mirroring the net.Error convention.
func (e *Error) Timeout() bool {
	return e.Kind == TimedOut
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the failure category from an error returned by
// this package. Errors from elsewhere report Unknown.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return Unknown
}

// IsKind reports whether err is a transport error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}
