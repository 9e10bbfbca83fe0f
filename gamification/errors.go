package gamification

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidWindowState  = errors.New("daily claim window is not open")
	ErrNotFound            = errors.New("not found")
	ErrRemoteClaimFailure  = errors.New("remote claim failed")
	ErrInconsistentXPState = errors.New("inconsistent xp state")
	ErrClaimInFlight       = errors.New("a daily claim is already in flight")
	ErrCoordinatorClosed   = errors.New("progression coordinator is closed")
)

// InvalidWindowStateError is returned when a claim is attempted while the
// window is locked. NextClaimAt is when the next claim opens.
type InvalidWindowStateError struct {
	NextClaimAt time.Time
}

func (e *InvalidWindowStateError) Error() string {
	return fmt.Sprintf("already claimed today, next claim opens at %s", e.NextClaimAt.UTC().Format(time.RFC3339))
}

func (e *InvalidWindowStateError) Is(target error) bool {
	return target == ErrInvalidWindowState
}

// NotFoundError reports a lookup of an id outside a closed catalog.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RemoteClaimError wraps a failed round-trip to the claim endpoint. Message is
// the server-provided reason, if any.
type RemoteClaimError struct {
	Message string
	Cause   error
}

func (e *RemoteClaimError) Error() string {
	switch {
	case e.Cause != nil && e.Message != "":
		return fmt.Sprintf("remote claim failed: %s (caused by: %v)", e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("remote claim failed: %v", e.Cause)
	case e.Message != "":
		return "remote claim failed: " + e.Message
	default:
		return ErrRemoteClaimFailure.Error()
	}
}

func (e *RemoteClaimError) Unwrap() error {
	return e.Cause
}

func (e *RemoteClaimError) Is(target error) bool {
	return target == ErrRemoteClaimFailure
}
