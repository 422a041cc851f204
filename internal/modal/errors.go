package modal

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed batch input or a malformed decision.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState marks an operation against a contact or run in the wrong status.
	ErrInvalidState = errors.New("invalid state")
	// ErrCollaboratorUnavailable marks a lookup or generation dependency that failed or timed out.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrPersistence marks a snapshot read or write failure.
	ErrPersistence  = errors.New("persistence failure")
	ErrRunNotFound  = errors.New("run not found")
	ErrDuplicateRun = errors.New("duplicate run id")
	// ErrGeneration marks a draft backend failure.
	ErrGeneration = errors.New("generation failed")
	// ErrUnavailable is returned by a lookup that has nothing to offer for the
	// contact: not found, not configured, or not authorized. It is an absence,
	// not a failure.
	ErrUnavailable = errors.New("source unavailable")
)

// Error attaches the operation and contact to a sentinel.
type Error struct {
	Op        string
	Kind      error
	ContactID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.ContactID != "" {
		msg += fmt.Sprintf(" (contact %s)", e.ContactID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel kind so errors.Is works without unwrapping the cause.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, kind error, contactID string, err error) *Error {
	return &Error{Op: op, Kind: kind, ContactID: contactID, Err: err}
}
