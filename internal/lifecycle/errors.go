package lifecycle

import (
	"errors"
	"fmt"
)

// Business-rule errors. Each is terminal for the call that raised it;
// the message is suitable for display to the requesting user.
var (
	// ErrPermissionDenied is returned when the actor lacks the role or
	// task relation an operation requires.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition is returned when a requested status change
	// is not an edge of the task state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTaskNotOpen is returned when claiming a task that is not open
	// for self-claim.
	ErrTaskNotOpen = errors.New("task is not open for claiming")

	// ErrTaskFull is returned when claiming a task whose assignee set
	// already reached max_participants.
	ErrTaskFull = errors.New("task is full")

	// ErrAlreadyClaimed is returned when the actor is already an
	// assignee of the task being claimed.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrNotAssigned is returned when unclaiming a task the actor is
	// not assigned to.
	ErrNotAssigned = errors.New("not assigned")

	// ErrReversalWindowClosed is returned when unclaiming within 24
	// hours of the due date.
	ErrReversalWindowClosed = errors.New("cannot revert task within 24h of due date; contact a coordinator")

	// ErrValidation is returned for malformed input (bad date, missing
	// required field).
	ErrValidation = errors.New("validation failed")
)

// StorageError wraps a repository or transaction failure. It is never
// produced for business-rule violations, only for faults in the store
// itself.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
