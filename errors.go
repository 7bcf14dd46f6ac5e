package messenger

import "errors"

// Errors
var (
	// ErrInvalidAddress is returned by Put/Subscribe when the given
	// address is not a well-formed URI or carries no host.
	ErrInvalidAddress = errors.New("messenger: invalid address")

	// ErrTimeout is returned by Send/Recv when waitUntil's deadline
	// elapses before its predicate holds. Stop logs a timeout instead of
	// returning it.
	ErrTimeout = errors.New("messenger: timeout")

	// ErrNothingAvailable is returned by Get when no connection's work
	// list holds a readable, non-partial delivery.
	ErrNothingAvailable = errors.New("messenger: nothing available")
)
