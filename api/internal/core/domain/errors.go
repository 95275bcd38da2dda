package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps every invariant violation raised by entity
	// constructors and state transitions.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateResponse is returned when an evaluator already submitted
	// a response for the same evaluated member.
	ErrDuplicateResponse = errors.New("response already submitted for this pair")

	// ErrInvalidTransition is returned when an evaluation status change
	// skips a state or moves backwards.
	ErrInvalidTransition = errors.New("invalid evaluation status transition")

	// ErrUnauthorized is returned when a presented manager token or member
	// session does not prove ownership of the requested resource.
	ErrUnauthorized = errors.New("unauthorized")
)
