package workflow

import "errors"

// Errors returned by workflow transitions.
//
// These are deliberately distinct kinds, checkable with errors.Is(), so a
// caller can tell "try again" from "this action is not allowed":
//
//	if errors.Is(err, workflow.ErrConflict) {
//	    // Someone else moved the record first; re-read and decide again
//	}
var (
	// ErrInvalidTransition is returned when the record's current status
	// does not permit the requested transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when the acting identity fails the
	// policy check for the requested transition.
	ErrUnauthorized = errors.New("actor not authorized for transition")

	// ErrConflict is returned when the record's status changed between
	// the decision read and the write. The transition was not applied.
	ErrConflict = errors.New("record changed concurrently")
)

// IsDenied returns true for errors that mean the request itself was
// rejected (bad state or bad actor). Denied requests must never be
// retried mechanically; repeating them yields the same answer.
func IsDenied(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrUnauthorized)
}
