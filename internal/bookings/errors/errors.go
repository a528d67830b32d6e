package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrNotConfirmed means the conditional cancel matched nothing: the
	// booking was cancelled already, possibly by a concurrent request.
	ErrNotConfirmed = errors.New("booking is not confirmed")
)
