/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  Every failure the engine can report falls into one ErrorKind. Domain
  packages return structured errors that unwrap to one of the sentinels
  below, so the HTTP boundary can classify any error with KindOf.

ERROR KINDS:
  validation                  malformed or out-of-range input
  insufficient_balance        reservation exceeds the allotment
  forbidden                   caller may not act on the resource
  invalid_state_transition    action not allowed from the current state
  cancellation_window_closed  approved request already started
  not_found                   unknown request, employee or period
  conflict                    overlapping request, duplicate write
  cycle_detected              hierarchy integrity violation (internal)
  storage                     persistence failure, nothing was applied

SEE ALSO:
  - vacation/errors.go: domain-specific structured errors
  - api/errors.go: ErrorKind to HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation               = errors.New("validation failed")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrForbidden                = errors.New("forbidden")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrNotFound                 = errors.New("not found")
	ErrConflict                 = errors.New("conflict")
	ErrCycleDetected            = errors.New("cycle detected in hierarchy")
	ErrStorage                  = errors.New("storage failure")

	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned when a compare-and-swap update
	// finds the row in a different state or version than expected.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientBalanceError provides details about a shortage.
type InsufficientBalanceError struct {
	EntityID  EntityID
	Period    int
	Resource  string
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s in %d: available %d, requested %d, shortfall %d",
		e.Resource, e.Period, e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Shortfall() int { return e.Requested - e.Available }

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// CycleError lists the ids visited before the repeat.
type CycleError struct {
	Path []EntityID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return "cycle detected in hierarchy: " + strings.Join(parts, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

// Unwrap exposes both the storage sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// WrapStorage marks err as a storage failure unless it already carries a
// taxonomy kind (for example a not-found or CAS failure from the store).
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

type ErrorKind string

const (
	KindValidation               ErrorKind = "validation"
	KindInsufficientBalance      ErrorKind = "insufficient_balance"
	KindForbidden                ErrorKind = "forbidden"
	KindInvalidStateTransition   ErrorKind = "invalid_state_transition"
	KindCancellationWindowClosed ErrorKind = "cancellation_window_closed"
	KindNotFound                 ErrorKind = "not_found"
	KindConflict                 ErrorKind = "conflict"
	KindCycleDetected            ErrorKind = "cycle_detected"
	KindStorage                  ErrorKind = "storage"
	KindInternal                 ErrorKind = "internal"
)

var kindTable = []struct {
	sentinel error
	kind     ErrorKind
}{
	{ErrValidation, KindValidation},
	{ErrInsufficientBalance, KindInsufficientBalance},
	{ErrForbidden, KindForbidden},
	{ErrInvalidStateTransition, KindInvalidStateTransition},
	{ErrConcurrentModification, KindInvalidStateTransition},
	{ErrCancellationWindowClosed, KindCancellationWindowClosed},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{ErrDuplicateIdempotencyKey, KindConflict},
	{ErrCycleDetected, KindCycleDetected},
	{ErrStorage, KindStorage},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindTable {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// IsClientError returns true if the error is due to caller input or state.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindInsufficientBalance, KindForbidden, KindInvalidStateTransition,
		KindCancellationWindowClosed, KindNotFound, KindConflict:
		return true
	}
	return false
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
