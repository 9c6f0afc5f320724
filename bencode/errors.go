package bencode

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a decoding failure.
type ErrorKind uint8

// The decoding failure kinds. StructuralMismatch is the only recoverable kind.
const (
	StructuralMismatch ErrorKind = iota
	InvalidInteger
	IntegerOverflow
	InvalidByteStringLength
)

// String implements fmt.Stringer for ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case StructuralMismatch:
		return "structural mismatch"
	case InvalidInteger:
		return "invalid integer"
	case IntegerOverflow:
		return "integer overflow"
	case InvalidByteStringLength:
		return "invalid byte string length"
	default:
		return "unknown"
	}
}

// Sentinel errors for use with errors.Is. A *Error matches the sentinel of
// its Kind.
var (
	ErrStructuralMismatch      = errors.New("bencode: structural mismatch")
	ErrInvalidInteger          = errors.New("bencode: invalid integer")
	ErrIntegerOverflow         = errors.New("bencode: integer overflow")
	ErrInvalidByteStringLength = errors.New("bencode: invalid byte string length")
)

var sentinels = map[ErrorKind]error{
	StructuralMismatch:      ErrStructuralMismatch,
	InvalidInteger:          ErrInvalidInteger,
	IntegerOverflow:         ErrIntegerOverflow,
	InvalidByteStringLength: ErrInvalidByteStringLength,
}

// Error is returned for every decoding failure.
type Error struct {
	Kind ErrorKind

	// Offset is the position in the input the failure refers to. For fatal
	// kinds it is the first byte of the malformed value.
	Offset int

	// Token holds the offending digits for fatal kinds. It aliases the
	// input.
	Token []byte

	// Reason is a short human readable description.
	Reason string
}

// Fatal reports whether the failure must abort the whole decode instead of
// letting another grammar alternative be tried.
func (e *Error) Fatal() bool {
	return e.Kind != StructuralMismatch
}

func (e *Error) Error() string {
	if len(e.Token) > 0 {
		return fmt.Sprintf("bencode: %s at offset %d: %s (%q)", e.Kind, e.Offset, e.Reason, e.Token)
	}
	return fmt.Sprintf("bencode: %s at offset %d: %s", e.Kind, e.Offset, e.Reason)
}

// Is reports whether target is the sentinel error for e.Kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func mismatch(off int, reason string) *Error {
	return &Error{Kind: StructuralMismatch, Offset: off, Reason: reason}
}

func failure(kind ErrorKind, off int, token []byte, reason string) *Error {
	return &Error{Kind: kind, Offset: off, Token: token, Reason: reason}
}
