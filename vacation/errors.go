package vacation

import (
	"fmt"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// DOMAIN ERRORS
// =============================================================================
// All errors unwrap to a sentinel in generic/errors.go so generic.KindOf can
// classify them.

var (
	ErrInvalidDateRange = fmt.Errorf("%w: fechaFin is before fechaInicio", generic.ErrValidation)
	ErrPeriodMismatch   = fmt.Errorf("%w: date range does not fall in periodo", generic.ErrValidation)
)

// TransitionError reports an action that the transition table rejects.
type TransitionError struct {
	From   RequestState
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a request in state %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return generic.ErrInvalidStateTransition }

// CancellationWindowError is returned when an approved request has started.
type CancellationWindowError struct {
	RequestID string
	Start     generic.TimePoint
}

func (e *CancellationWindowError) Error() string {
	return fmt.Sprintf("request %s started on %s and can no longer be cancelled", e.RequestID, e.Start)
}

func (e *CancellationWindowError) Unwrap() error { return generic.ErrCancellationWindowClosed }

// ForbiddenError names the actor and the action denied.
type ForbiddenError struct {
	ActorID generic.EntityID
	Action  string
	Reason  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s may not %s: %s", e.ActorID, e.Action, e.Reason)
}

func (e *ForbiddenError) Unwrap() error { return generic.ErrForbidden }

// OverlapError is returned when a submission collides with an open request.
type OverlapError struct {
	ExistingID string
	Range      generic.Period
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("dates %s overlap request %s", e.Range, e.ExistingID)
}

func (e *OverlapError) Unwrap() error { return generic.ErrConflict }

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, generic.ErrNotFound)
}
