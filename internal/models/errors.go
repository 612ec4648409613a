package models

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound is returned when no order exists for a given id.
var ErrOrderNotFound = errors.New("order not found")

// ErrDuplicateIdempotencyKey is returned when an order insert loses a
// concurrent duplicate-create race on the idempotency key. The winning
// order already exists and should be served instead of an error.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

// ValidationError rejects bad caller input before any I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Shipping input errors, returned as-is by the shipping engine so callers
// can match them with errors.Is.
var (
	ErrInvalidDestination = &ValidationError{Field: "destination", Reason: "country is required"}
	ErrInvalidWeight      = &ValidationError{Field: "weight_kg", Reason: "must not be negative"}
)

// InvariantViolationError signals that computed totals broke the
// HT + tax == TTC invariant. This is a bug signal, not a user error.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("calculation invariant violated: %s", e.Detail)
}

// StoreUnavailableError wraps a timeout or connection failure on one of
// the backing stores. Retryable.
type StoreUnavailableError struct {
	Store string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable: %v", e.Store, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError rejects a status change the state machine does
// not allow. Neither store is mutated when it is returned.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// IdempotencyConflictError is returned when an idempotency key is reused
// with a different payload.
type IdempotencyConflictError struct {
	Key string
}

func (e *IdempotencyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %q already used with a different payload", e.Key)
}
