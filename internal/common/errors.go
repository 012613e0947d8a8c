package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError carries every violating line of a rejected order request,
// not just the first. Callers must change the request; retrying does not help.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// NewValidationError creates a validation error from one or more messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// AsValidationError unwraps err into a ValidationError if it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// TransientStoreError wraps a lock timeout, deadlock, or lost constraint race.
// The whole confirmation is safe to retry from scratch: the retry either sees
// the committed order through the idempotency guard or re-attempts the
// decrement.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried by the caller
func IsTransient(err error) bool {
	var te *TransientStoreError
	return errors.As(err, &te)
}

// FatalIntegrityError signals a violated invariant that validation should have
// made impossible, e.g. a decrement reaching negative stock. It is never
// swallowed; the enclosing transaction rolls back entirely.
type FatalIntegrityError struct {
	Err error
}

func (e *FatalIntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %v", e.Err)
}

func (e *FatalIntegrityError) Unwrap() error { return e.Err }

// Postgres error codes the order path must distinguish.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a specific constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// ClassifyStoreError maps driver-level failures into the service taxonomy.
// Serialization failures, deadlocks and lock timeouts become retryable
// transient errors; everything else passes through unchanged.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return &TransientStoreError{Err: err}
		}
	}
	return err
}
