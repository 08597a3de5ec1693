package vacation

import (
	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// TRANSITION TABLE - (state, action) -> next state
// =============================================================================
//
//	pendiente --aprobar-->  aprobado   (approver, commit)
//	pendiente --rechazar--> rechazado  (approver, release)
//	pendiente --cancelar--> cancelado  (owner, release)
//	aprobado  --cancelar--> cancelado  (owner, release, only before start)
//
// Anything not listed is an InvalidStateTransition.

type Action string

const (
	ActionApprove Action = "aprobar"
	ActionReject  Action = "rechazar"
	ActionCancel  Action = "cancelar"
)

// ParseDecision accepts the two actions valid on the decision endpoint.
func ParseDecision(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), nil
	}
	return "", &generic.ValidationError{Field: "accion", Reason: "must be aprobar or rechazar"}
}

// LedgerEffect is what a transition does to the reservation.
type LedgerEffect int

const (
	EffectNone LedgerEffect = iota
	EffectCommit
	EffectRelease
)

// Performer is who may trigger a transition besides an admin.
type Performer int

const (
	PerformerApprover Performer = iota // someone in the requester's chain
	PerformerOwner                     // the requester
)

type Transition struct {
	Next            RequestState
	Effect          LedgerEffect
	Performer       Performer
	BeforeStartOnly bool
}

var transitions = map[RequestState]map[Action]Transition{
	EstadoPendiente: {
		ActionApprove: {Next: EstadoAprobado, Effect: EffectCommit, Performer: PerformerApprover},
		ActionReject:  {Next: EstadoRechazado, Effect: EffectRelease, Performer: PerformerApprover},
		ActionCancel:  {Next: EstadoCancelado, Effect: EffectRelease, Performer: PerformerOwner},
	},
	EstadoAprobado: {
		ActionCancel: {Next: EstadoCancelado, Effect: EffectRelease, Performer: PerformerOwner, BeforeStartOnly: true},
	},
}

// NextState looks up the transition for action from state.
func NextState(state RequestState, action Action) (Transition, error) {
	if t, ok := transitions[state][action]; ok {
		return t, nil
	}
	return Transition{}, &TransitionError{From: state, Action: action}
}

// CheckWindow enforces BeforeStartOnly: today must be strictly before start.
func (t Transition) CheckWindow(r VacationRequest, today generic.TimePoint) error {
	if t.BeforeStartOnly && !today.Before(r.Start) {
		return &CancellationWindowError{RequestID: r.ID, Start: r.Start}
	}
	return nil
}

// Authorize checks the performer rule of t. inChain reports whether the actor
// is a superior of the requester.
func (t Transition) Authorize(r VacationRequest, actor Actor, action Action, inChain bool) error {
	if !actor.Active {
		return &ForbiddenError{ActorID: actor.ID, Action: string(action), Reason: "user is inactive"}
	}
	switch t.Performer {
	case PerformerApprover:
		if actor.ID == r.RequesterID {
			return &ForbiddenError{ActorID: actor.ID, Action: string(action), Reason: "cannot decide own request"}
		}
		if !inChain && !actor.IsAdmin() {
			return &ForbiddenError{ActorID: actor.ID, Action: string(action), Reason: "not a superior of the requester"}
		}
	case PerformerOwner:
		if actor.ID != r.RequesterID && !actor.IsAdmin() {
			return &ForbiddenError{ActorID: actor.ID, Action: string(action), Reason: "not the requester"}
		}
	}
	return nil
}

// Allowed evaluates the whole table for a read-only view: state, performer
// and window. It is the single source of the PuedeAprobar / PuedeCancelar
// flags.
func Allowed(r VacationRequest, action Action, actor Actor, inChain bool, today generic.TimePoint) bool {
	t, err := NextState(r.State, action)
	if err != nil {
		return false
	}
	if t.Authorize(r, actor, action, inChain) != nil {
		return false
	}
	return t.CheckWindow(r, today) == nil
}
