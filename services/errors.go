// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Kind classifies why an engine operation was refused.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindInvalidState        Kind = "InvalidState"
	KindInsufficientBalance Kind = "InsufficientBalance"
	KindInvalidBid          Kind = "InvalidBid"
	KindInvalidInput        Kind = "InvalidInput"
	KindForbidden           Kind = "Forbidden"
	KindConflict            Kind = "Conflict"
)

// Error is the typed failure returned by every engine operation. A failed
// operation never leaves partial writes behind.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches bare kind sentinels such as ErrNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Msg != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrInvalidBid          = &Error{Kind: KindInvalidBid}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrConflict            = &Error{Kind: KindConflict}

	// ErrFeeExempt is returned when an admin session reaches a fee boundary.
	ErrFeeExempt = errors.New("admin accounts are exempt from the access fee")
	// ErrDuplicateCharge is returned when a fee interval was already charged.
	ErrDuplicateCharge = errors.New("access fee already charged for this interval")
)

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the engine error kind carried by err, or "" for
// infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
