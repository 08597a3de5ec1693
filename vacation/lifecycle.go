/*
lifecycle.go - Vacation request state machine

PURPOSE:
  Validates and creates requests, applies decisions and cancellations, and
  keeps the reservation ledger in step with the request state.

CONCURRENCY:
  Every write follows the same order:
    1. read the request to learn (employee, period)
    2. take the (employee, period) lock
    3. open a store transaction and re-read the request
    4. check the transition table, the performer and the window
    5. compare-and-swap the state, then move the ledger

  Two concurrent decisions on one request serialize on the lock; the second
  re-reads a non-pending state and fails with InvalidStateTransition. The
  version check in step 5 also catches writers on other instances that
  do not share the lock.

SEE ALSO:
  - statemachine.go: the transition table
  - ledger.go: Reserve / Commit / Release
*/
package vacation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/vacation-engine/generic"
)

const (
	MaxNotesLength        = 1000
	MaxCommentsLength     = 1000
	MaxCancelReasonLength = 500
)

// SubmitInput is a new request as entered by the requester.
type SubmitInput struct {
	RequesterID generic.EntityID
	Kind        Kind
	Days        int
	Start       generic.TimePoint
	End         generic.TimePoint
	Period      int
	Notes       string
}

// Validate applies the input rules that need no storage.
func (in SubmitInput) Validate() error {
	if in.RequesterID == "" {
		return &generic.ValidationError{Field: "usuarioId", Reason: "required"}
	}
	if !in.Kind.Valid() {
		return &generic.ValidationError{Field: "tipoVacaciones", Reason: "must be libres or bloque"}
	}
	if in.Days <= 0 {
		return &generic.ValidationError{Field: "diasSolicitados", Reason: "must be greater than 0"}
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return &generic.ValidationError{Field: "fechaInicio", Reason: "start and end dates are required"}
	}
	if in.End.Before(in.Start) {
		return ErrInvalidDateRange
	}
	if err := generic.ValidatePeriodYear(in.Period); err != nil {
		return err
	}
	if !generic.PeriodOfYear(in.Period).ContainsPeriod(generic.Period{Start: in.Start, End: in.End}) {
		return ErrPeriodMismatch
	}
	if len([]rune(in.Notes)) > MaxNotesLength {
		return &generic.ValidationError{Field: "observaciones", Reason: fmt.Sprintf("at most %d characters", MaxNotesLength)}
	}

	length := generic.DaysInclusive(in.Start, in.End)
	switch in.Kind {
	case KindBloque:
		if in.Days != length {
			return &generic.ValidationError{
				Field:  "diasSolicitados",
				Reason: fmt.Sprintf("a bloque request must cover its whole range (%d days)", length),
			}
		}
	case KindLibres:
		if in.Days > length {
			return &generic.ValidationError{
				Field:  "diasSolicitados",
				Reason: fmt.Sprintf("cannot exceed the %d days in the range", length),
			}
		}
	}
	return nil
}

// =============================================================================
// REQUEST LIFECYCLE MANAGER
// =============================================================================

type RequestLifecycleManager struct {
	store  TxStore
	ledger *BalanceLedger
	locker generic.Locker
	clock  Clock
	logger *zap.Logger

	// OnTransition, when set, is called after every committed transition.
	OnTransition func(from, to RequestState)
}

func NewRequestLifecycleManager(d Deps) *RequestLifecycleManager {
	d = d.withDefaults()
	return &RequestLifecycleManager{
		store:  d.Store,
		ledger: NewBalanceLedger(d),
		locker: d.Locker,
		clock:  d.Clock,
		logger: d.Logger.Named("vacation.lifecycle"),
	}
}

// Ledger exposes the reservation ledger the manager writes to.
func (m *RequestLifecycleManager) Ledger() *BalanceLedger { return m.ledger }

// Submit validates the input, reserves the days and stores a pending request.
func (m *RequestLifecycleManager) Submit(ctx context.Context, in SubmitInput) (VacationRequest, error) {
	if err := in.Validate(); err != nil {
		m.logger.Warn("submit rejected", zap.String("employee_id", string(in.RequesterID)), zap.Error(err))
		return VacationRequest{}, err
	}

	var created VacationRequest
	err := m.ledger.locked(ctx, in.RequesterID, in.Period, func(s Store) error {
		requester, err := s.GetEmployee(ctx, in.RequesterID)
		if err != nil {
			return generic.WrapStorage("get employee", err)
		}

		overlapping, err := s.FindOverlapping(ctx, in.RequesterID, in.Start, in.End, EstadoPendiente, EstadoAprobado)
		if err != nil {
			return generic.WrapStorage("find overlapping", err)
		}
		if len(overlapping) > 0 {
			return &OverlapError{ExistingID: overlapping[0].ID, Range: overlapping[0].Range()}
		}

		token, err := m.ledger.reserve(ctx, s, in.RequesterID, in.Period, in.Kind, in.Days, in.RequesterID)
		if err != nil {
			return err
		}

		created = VacationRequest{
			ID:          uuid.NewString(),
			RequesterID: in.RequesterID,
			SuperiorID:  requester.JefeID,
			Kind:        in.Kind,
			Days:        in.Days,
			Start:       in.Start,
			End:         in.End,
			WeekendDays: generic.WeekendDays(in.Start, in.End),
			Period:      in.Period,
			State:       EstadoPendiente,
			SubmittedAt: m.clock().UTC(),
			Notes:       in.Notes,
			TokenID:     token.ID,
			Version:     1,
		}
		return generic.WrapStorage("create request", s.CreateRequest(ctx, created))
	})
	if err != nil {
		m.logFailure("submit", in.RequesterID, in.Period, err)
		return VacationRequest{}, err
	}

	m.logger.Info("request submitted",
		zap.String("request_id", created.ID),
		zap.String("employee_id", string(created.RequesterID)),
		zap.Int("period", created.Period),
		zap.String("kind", string(created.Kind)),
		zap.Int("days", created.Days))
	if m.OnTransition != nil {
		m.OnTransition("", EstadoPendiente)
	}
	return created, nil
}

// Approve commits the reservation of a pending request.
func (m *RequestLifecycleManager) Approve(ctx context.Context, requestID string, approver Actor, comments string) (VacationRequest, error) {
	return m.apply(ctx, requestID, approver, ActionApprove, comments)
}

// Reject releases the reservation of a pending request.
func (m *RequestLifecycleManager) Reject(ctx context.Context, requestID string, approver Actor, comments string) (VacationRequest, error) {
	return m.apply(ctx, requestID, approver, ActionReject, comments)
}

// Decide dispatches a decision received as an Action.
func (m *RequestLifecycleManager) Decide(ctx context.Context, requestID string, approver Actor, action Action, comments string) (VacationRequest, error) {
	if action != ActionApprove && action != ActionReject {
		return VacationRequest{}, &generic.ValidationError{Field: "accion", Reason: "must be aprobar or rechazar"}
	}
	return m.apply(ctx, requestID, approver, action, comments)
}

// Cancel releases the reservation of a pending request, or of an approved
// one that has not started yet.
func (m *RequestLifecycleManager) Cancel(ctx context.Context, requestID string, actor Actor, motivo string) (VacationRequest, error) {
	return m.apply(ctx, requestID, actor, ActionCancel, motivo)
}

func (m *RequestLifecycleManager) apply(ctx context.Context, requestID string, actor Actor, action Action, text string) (VacationRequest, error) {
	if err := validateText(action, text); err != nil {
		return VacationRequest{}, err
	}

	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return VacationRequest{}, generic.WrapStorage("get request", err)
	}

	var (
		updated VacationRequest
		from    RequestState
	)
	err = m.ledger.locked(ctx, req.RequesterID, req.Period, func(s Store) error {
		cur, err := s.GetRequest(ctx, requestID)
		if err != nil {
			return generic.WrapStorage("get request", err)
		}
		from = cur.State

		t, err := NextState(cur.State, action)
		if err != nil {
			return err
		}
		inChain := false
		if t.Performer == PerformerApprover {
			if inChain, err = NewHierarchyResolver(s).IsInChain(ctx, actor.ID, cur.RequesterID); err != nil {
				return err
			}
		}
		if err := t.Authorize(cur, actor, action, inChain); err != nil {
			return err
		}
		now := m.clock()
		if err := t.CheckWindow(cur, generic.DayOf(now)); err != nil {
			return err
		}

		updated = stamp(cur, t, actor, action, text, now.UTC())
		if err := s.TransitionRequest(ctx, updated, cur.State, cur.Version); err != nil {
			if errors.Is(err, generic.ErrConcurrentModification) {
				return fmt.Errorf("request %s: %w", cur.ID, err)
			}
			return generic.WrapStorage("transition request", err)
		}
		updated.Version = cur.Version + 1

		switch t.Effect {
		case EffectCommit:
			return m.ledger.commit(ctx, s, cur.Token(), actor.ID)
		case EffectRelease:
			return m.ledger.release(ctx, s, cur.Token(), actor.ID)
		}
		return nil
	})
	if err != nil {
		m.logFailure(string(action), req.RequesterID, req.Period, err)
		return VacationRequest{}, err
	}

	m.logger.Info("request transitioned",
		zap.String("request_id", updated.ID),
		zap.String("employee_id", string(updated.RequesterID)),
		zap.String("actor_id", string(actor.ID)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.State)),
		zap.Int("period", updated.Period),
		zap.String("kind", string(updated.Kind)),
		zap.Int("days", updated.Days))
	if m.OnTransition != nil {
		m.OnTransition(from, updated.State)
	}
	return updated, nil
}

func stamp(r VacationRequest, t Transition, actor Actor, action Action, text string, now time.Time) VacationRequest {
	r.State = t.Next
	switch action {
	case ActionApprove, ActionReject:
		r.ApproverID = actor.ID
		r.DecidedAt = &now
		r.Comments = text
	case ActionCancel:
		r.CancelledBy = actor.ID
		r.CancelledAt = &now
		r.CancelReason = text
	}
	return r
}

func validateText(action Action, text string) error {
	limit, field := MaxCommentsLength, "comentarios"
	if action == ActionCancel {
		limit, field = MaxCancelReasonLength, "motivoCancelacion"
	}
	if len([]rune(text)) > limit {
		return &generic.ValidationError{Field: field, Reason: fmt.Sprintf("at most %d characters", limit)}
	}
	return nil
}

func (m *RequestLifecycleManager) logFailure(op string, employee generic.EntityID, period int, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("employee_id", string(employee)),
		zap.Int("period", period),
		zap.Error(err),
	}
	if generic.IsClientError(err) {
		m.logger.Warn("request operation rejected", fields...)
		return
	}
	m.logger.Error("request operation failed", fields...)
}

// =============================================================================
// QUERIES
// =============================================================================

// RequestDetail is a request with the people involved and the actions the
// viewer may take.
type RequestDetail struct {
	Request       VacationRequest
	Requester     Employee
	Approver      *Employee
	Superior      *Employee
	PuedeCancelar bool
	PuedeAprobar  bool
}

// Detail returns a request visible to viewer: the requester, anyone in the
// requester's chain, or an admin.
func (m *RequestLifecycleManager) Detail(ctx context.Context, requestID string, viewer Actor) (RequestDetail, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return RequestDetail{}, generic.WrapStorage("get request", err)
	}
	h := NewHierarchyResolver(m.store)
	inChain, err := h.IsInChain(ctx, viewer.ID, req.RequesterID)
	if err != nil {
		return RequestDetail{}, err
	}
	if viewer.ID != req.RequesterID && !inChain && !viewer.IsAdmin() {
		return RequestDetail{}, &ForbiddenError{ActorID: viewer.ID, Action: "view", Reason: "not related to the request"}
	}

	d := RequestDetail{Request: req}
	if d.Requester, err = m.store.GetEmployee(ctx, req.RequesterID); err != nil {
		return RequestDetail{}, generic.WrapStorage("get requester", err)
	}
	if d.Approver, err = m.optionalEmployee(ctx, req.ApproverID); err != nil {
		return RequestDetail{}, err
	}
	if d.Superior, err = m.optionalEmployee(ctx, req.SuperiorID); err != nil {
		return RequestDetail{}, err
	}

	today := generic.DayOf(m.clock())
	d.PuedeAprobar = Allowed(req, ActionApprove, viewer, inChain, today)
	d.PuedeCancelar = Allowed(req, ActionCancel, viewer, inChain, today)
	return d, nil
}

func (m *RequestLifecycleManager) optionalEmployee(ctx context.Context, id generic.EntityID) (*Employee, error) {
	if id == "" {
		return nil, nil
	}
	e, err := m.store.GetEmployee(ctx, id)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, generic.WrapStorage("get employee", err)
	}
	return &e, nil
}

// ListOwn returns the requests of the actor, newest first.
func (m *RequestLifecycleManager) ListOwn(ctx context.Context, actor Actor) ([]VacationRequest, error) {
	reqs, err := m.store.ListRequestsByEmployee(ctx, actor.ID)
	if err != nil {
		return nil, generic.WrapStorage("list requests", err)
	}
	sortNewestFirst(reqs)
	return reqs, nil
}

// ListPendingFor returns the pending requests approver may decide: those of
// its whole subordinate tree, or all of them for an admin.
func (m *RequestLifecycleManager) ListPendingFor(ctx context.Context, approver Actor) ([]VacationRequest, error) {
	pending, err := m.store.ListRequestsByState(ctx, EstadoPendiente)
	if err != nil {
		return nil, generic.WrapStorage("list pending", err)
	}

	var out []VacationRequest
	if approver.IsAdmin() {
		for _, r := range pending {
			if r.RequesterID != approver.ID {
				out = append(out, r)
			}
		}
	} else {
		subs, err := NewHierarchyResolver(m.store).Subordinates(ctx, approver.ID, 0)
		if err != nil {
			return nil, err
		}
		mine := make(map[generic.EntityID]bool, len(subs))
		for _, s := range subs {
			mine[s.ID] = true
		}
		for _, r := range pending {
			if mine[r.RequesterID] {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func sortNewestFirst(reqs []VacationRequest) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].SubmittedAt.After(reqs[j].SubmittedAt) })
}
