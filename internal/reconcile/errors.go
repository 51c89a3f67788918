package reconcile

import (
	"errors"
	"fmt"
)

// Code categorizes reconciliation errors. The code decides whether an error
// aborts the run or is recorded per-item.
type Code string

const (
	// CodeAuth indicates an invalid or missing credential. Fatal.
	CodeAuth Code = "AUTH"

	// CodeConfig indicates malformed or missing configuration. Fatal.
	CodeConfig Code = "CONFIG"

	// CodeFetch indicates the source or destination listing failed. Fatal:
	// a plan computed from partial state must not be applied.
	CodeFetch Code = "FETCH"

	// CodeApply indicates a single item's mutation failed. Recoverable:
	// recorded as an ErrorRecord, the run continues.
	CodeApply Code = "APPLY"
)

// Error is a coded reconciliation error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Authf creates an AUTH error.
func Authf(format string, args ...any) *Error {
	return &Error{Code: CodeAuth, Message: fmt.Sprintf(format, args...)}
}

// Configf creates a CONFIG error.
func Configf(format string, args ...any) *Error {
	return &Error{Code: CodeConfig, Message: fmt.Sprintf(format, args...)}
}

// WrapFetch wraps err as a FETCH error unless it already carries a fatal
// code (an AUTH failure surfaced during a listing stays an AUTH failure).
func WrapFetch(message string, err error) error {
	var re *Error
	if errors.As(err, &re) && re.Code != CodeApply {
		return err
	}
	return &Error{Code: CodeFetch, Message: message, Err: err}
}

// WrapApply wraps err as an APPLY error unless it is already coded.
func WrapApply(message string, err error) error {
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Code: CodeApply, Message: message, Err: err}
}

// CodeOf extracts the code from an error. Uncoded errors default to
// CodeFetch, the conservative fatal classification.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeFetch
}

// IsFatal reports whether err must abort the run without partial application.
func IsFatal(err error) bool {
	return CodeOf(err) != CodeApply
}
