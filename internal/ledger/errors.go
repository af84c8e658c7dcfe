package ledger

import (
	"context"
	"errors"
)

// Common errors returned by ledger backends.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, ledger.ErrUnavailable) {
//	    // Transient substrate failure; the call may be retried
//	}
var (
	// ErrUnavailable is returned when the substrate cannot be reached or
	// rejected the call. Callers may retry within their retry budget.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrClosed is returned when a call is made on a client whose Close
	// has already run.
	ErrClosed = errors.New("ledger client closed")

	// ErrNotRegistered is returned by the factory when no constructor
	// exists for the requested backend type.
	ErrNotRegistered = errors.New("ledger backend not registered")
)

// IsRetryable returns true if the error is likely to succeed on retry.
// Only transient substrate failures qualify; a canceled context never does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return errors.Is(err, ErrUnavailable)
}

// IsFatal returns true if the error indicates a non-recoverable client
// state that no amount of retrying will fix.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrClosed) {
		return true
	}

	if errors.Is(err, ErrNotRegistered) {
		return true
	}

	return false
}
