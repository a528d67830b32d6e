package errors

import "errors"

var (
	// ErrNoBucket means no bucket of a suitable size offers the requested time.
	ErrNoBucket = errors.New("no table available for the requested time")

	// ErrSlotTaken means the conditional decrement matched nothing: a concurrent
	// booking took the last table first.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrBucketNotFound means the bucket or its time no longer exists, e.g. the
	// day was regenerated without it.
	ErrBucketNotFound = errors.New("availability bucket not found")

	// ErrSlotFull means a restore found every table of the slot already free.
	ErrSlotFull = errors.New("slot already at capacity")
)
