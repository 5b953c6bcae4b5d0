package queue

import "errors"

var (
	// ErrNotFound is returned when an item id does not exist in either
	// collection. Callers surface this loudly.
	ErrNotFound = errors.New("queue item not found")

	// ErrAlreadyResolved is returned when a manual resolution targets an
	// item that is no longer in the unresolved bucket. Callers show a
	// notice and otherwise treat it as a no-op.
	ErrAlreadyResolved = errors.New("item already resolved")

	// ErrInvalidTransition is returned for operations that do not apply to
	// the item's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
