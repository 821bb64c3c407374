package lifecycle

import (
	"errors"
	"fmt"
)

// ErrorKind classifies lifecycle failures
type ErrorKind int

const (
	// KindNone is reported for a nil error
	KindNone ErrorKind = iota
	// KindValidation is malformed or out-of-range input, detected before
	// any controller call
	KindValidation
	// KindConnectivity is a failed session open
	KindConnectivity
	// KindStateConfirmation is a post-condition re-read that did not match
	KindStateConfirmation
	// KindResourceUnavailable is a missing resource such as a free blade
	KindResourceUnavailable
	// KindFatal is any other controller or transport fault
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindConnectivity:
		return "connectivity"
	case KindStateConfirmation:
		return "state-confirmation"
	case KindResourceUnavailable:
		return "resource-unavailable"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified lifecycle failure carrying the text shown to the
// caller.
type Error struct {
	Kind ErrorKind
	Op   Operation
	// Code is a stable machine-readable reason such as types.ErrCodeVLANReserved
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op Operation, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func (e *Error) withCode(code string) *Error {
	e.Code = code
	return e
}

// CodeOf returns the reason code of err, or "" when it carries none
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// KindOf returns the kind of err. Errors that are not lifecycle errors are
// fatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindFatal
}

// IsKind reports whether err is of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
