package errors

import "errors"

var (
	ErrNotFound = errors.New("slot reservation not found")

	// ErrConflict is returned by a conditional create when a live
	// reservation already holds the slot.
	ErrConflict = errors.New("slot is already reserved")

	// ErrConditionFailed is returned by a conditional delete when the slot
	// is held by a different examination.
	ErrConditionFailed = errors.New("slot is held by a different examination")

	ErrInvalidBookingTime = errors.New("invalid booking time")

	ErrStoreClosed = errors.New("reservation store is closed")

	// ErrInvalidTTL is returned when the configured TTL would not produce an
	// expiry in the future.
	ErrInvalidTTL = errors.New("invalid reservation ttl")
)
