/*
errors.go - Centralized error types for the assignment engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (the API layer) map these to transport-level failures.

ERROR CATEGORIES:
  1. Not-found errors - matter, settings or availability block absent
  2. Authorization errors - capability check failed
  3. Validation errors - business rule violations on input
  4. Assignment errors - no eligible candidate for auto-assignment
  5. Store errors - persistence failures, surfaced unretried

USAGE:
  The API layer switches on these with errors.Is:

    if errors.Is(err, engine.ErrNoEligibleCandidate) {
        // prompt the user to assign manually instead
    }

SEE ALSO:
  - assign.go: produces assignment errors
  - api/handlers.go: maps errors to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMatterNotFound is returned when a referenced matter doesn't exist.
	ErrMatterNotFound = errors.New("matter not found")

	// ErrSettingsNotFound is returned when a fee earner has no settings row.
	ErrSettingsNotFound = errors.New("fee earner settings not found")

	// ErrBlockNotFound is returned when an availability block doesn't exist
	// or has been soft-deleted.
	ErrBlockNotFound = errors.New("availability block not found")

	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoEligibleCandidate is returned when automatic assignment finds
	// zero eligible fee earners. Deliberately distinct from not-found and
	// unauthorized so the caller can offer a manual-assignment fallback.
	ErrNoEligibleCandidate = errors.New("no eligible fee earner")

	// ErrValidation is the root of all input validation failures.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError wraps a persistence failure. Store errors are never
// retried inside this subsystem; they surface to the caller as-is.
type StoreError struct {
	Op  string // operation that failed, e.g. "settings.upsert"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error in %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMatterNotFound) ||
		errors.Is(err, ErrSettingsNotFound) ||
		errors.Is(err, ErrBlockNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}
