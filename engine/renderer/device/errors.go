package device

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a device error.
type ErrorCategory int

const (
	// CategoryNone means no error was reported.
	CategoryNone ErrorCategory = iota

	// CategoryInvalidOperation is a call that is not allowed in the current state.
	CategoryInvalidOperation

	// CategoryInvalidEnum is an out of range enumeration argument.
	CategoryInvalidEnum

	// CategoryInvalidValue is an out of range numeric argument.
	CategoryInvalidValue

	// CategoryOutOfMemory means the device could not allocate.
	CategoryOutOfMemory

	// CategoryInvalidFramebufferOperation is a draw or read against an incomplete framebuffer.
	CategoryInvalidFramebufferOperation

	// CategoryUnknown is any other device reported failure.
	CategoryUnknown
)

var (
	ErrInvalidOperation            = errors.New("invalid operation")
	ErrInvalidEnum                 = errors.New("invalid enum")
	ErrInvalidValue                = errors.New("invalid value")
	ErrOutOfMemory                 = errors.New("out of memory")
	ErrInvalidFramebufferOperation = errors.New("invalid framebuffer operation")
	ErrUnknown                     = errors.New("unknown device error")
)

// Err returns the sentinel error of the category, or nil for CategoryNone.
//
// Returns:
//   - error: the sentinel
func (c ErrorCategory) Err() error {
	switch c {
	case CategoryNone:
		return nil
	case CategoryInvalidOperation:
		return ErrInvalidOperation
	case CategoryInvalidEnum:
		return ErrInvalidEnum
	case CategoryInvalidValue:
		return ErrInvalidValue
	case CategoryOutOfMemory:
		return ErrOutOfMemory
	case CategoryInvalidFramebufferOperation:
		return ErrInvalidFramebufferOperation
	default:
		return ErrUnknown
	}
}

func (c ErrorCategory) String() string {
	if err := c.Err(); err != nil {
		return err.Error()
	}
	return "none"
}

// Error is a device error raised by a failed check. It unwraps to the category sentinel so
// callers can match it with errors.Is.
type Error struct {
	// Backend is the Name of the device that reported the error.
	Backend string

	// Op is the device call that failed.
	Op string

	Category ErrorCategory

	// Detail carries the backend specific message, if any.
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Backend, e.Op, e.Category)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Category.Err()
}

// Check panics with an *Error when category reports a failure. It does nothing in release builds.
//
// Parameters:
//   - backend: the device name
//   - op: the call that was just issued
//   - category: the error the device reported for it
func Check(backend, op string, category ErrorCategory) {
	if !ChecksEnabled || category == CategoryNone {
		return
	}
	panic(&Error{Backend: backend, Op: op, Category: category})
}

// Fail panics with an *Error unconditionally. Used for contract violations such as unknown handles.
//
// Parameters:
//   - backend: the device name
//   - op: the failing call
//   - category: the error class
//   - detail: a description of the violation
func Fail(backend, op string, category ErrorCategory, detail string) {
	panic(&Error{Backend: backend, Op: op, Category: category, Detail: detail})
}
