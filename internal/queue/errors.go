package queue

import "errors"

// Sentinel errors for the queue package.
var (
	// ErrUnknownTask is returned when an update names an id that was never enqueued.
	ErrUnknownTask = errors.New("task not in queue")

	// ErrInvalidTransition is returned when a status change would move a task backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)
