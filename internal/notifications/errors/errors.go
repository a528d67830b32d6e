package errors

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	ErrInvalidID = errors.New("invalid notification ID format")

	// ErrDuplicateEvent means a notification for the event was stored by an
	// earlier delivery of the same message.
	ErrDuplicateEvent = errors.New("notification already recorded for event")
)
