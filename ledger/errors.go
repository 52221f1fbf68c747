// Package ledger holds the primitives shared by the debt and loan ledgers:
// fixed-point money amounts and the error taxonomy every ledger operation
// reports through.
package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for input rejected before any mutation.
	// Safe to retry after correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an operation races with another writer
	// or attempts a transition out of a terminal state. The caller must
	// re-fetch current state before deciding whether to retry.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdempotencyKey is returned when a mutation carries an
	// idempotency key that was already consumed. Expected on client retry.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
