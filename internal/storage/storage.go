package storage

import "errors"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrBookingNotFound = errors.New("booking not found")
)

var (
	ErrCapacityExceeded    = errors.New("not enough available spots")
	ErrDuplicateBooking    = errors.New("user already has a booking for this event")
	ErrCapacityBelowBooked = errors.New("capacity is below already booked spots")
	ErrInvalidTransition   = errors.New("booking status transition is not allowed")
	ErrBookingExpired      = errors.New("booking confirmation deadline has passed")
)

// ErrLockTimeout indicates transient contention on the event row; callers
// may retry a bounded number of times.
var ErrLockTimeout = errors.New("timed out waiting for event row lock")
