// Package vacation implements vacation entitlements and the request lifecycle
// on top of the generic engine: hierarchy resolution, accrual of aging
// buckets and allotments, the reservation ledger, and the request state
// machine.
package vacation

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// KIND - The two independent allotments
// =============================================================================

// Kind selects which allotment a request consumes.
// Implements generic.ResourceType.
type Kind string

func (k Kind) ResourceID() string     { return string(k) }
func (k Kind) ResourceDomain() string { return "vacation" }

var _ generic.ResourceType = Kind("")

const (
	KindLibres Kind = "libres" // individually schedulable days
	KindBloque Kind = "bloque" // contiguous block
)

func init() {
	generic.RegisterResource(KindLibres)
	generic.RegisterResource(KindBloque)
}

// Kinds lists the allotments in display order.
var Kinds = []Kind{KindLibres, KindBloque}

// ParseKind accepts the wire names case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLibres:
		return KindLibres, nil
	case KindBloque:
		return KindBloque, nil
	}
	return "", &generic.ValidationError{Field: "tipoVacaciones", Reason: fmt.Sprintf("unknown kind %q", s)}
}

func (k Kind) Valid() bool { return k == KindLibres || k == KindBloque }

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is read-only to the engine except for hierarchy traversal.
// JefeID is empty for roots of the forest.
type Employee struct {
	ID       generic.EntityID
	Name     string
	Email    string
	HireDate generic.TimePoint
	Foreign  bool
	JefeID   generic.EntityID
}

func (e Employee) HasJefe() bool { return e.JefeID != "" }

// =============================================================================
// BALANCE - Aging buckets and allotments for one period
// =============================================================================

// Balance holds whole days only. All buckets are >= 0.
type Balance struct {
	EmployeeID generic.EntityID
	Period     int

	Vencidas   int
	Pendientes int
	Truncas    int

	DiasLibres int
	DiasBloque int

	FechaCorte generic.TimePoint
}

func (b Balance) TotalDias() int      { return b.DiasLibres + b.DiasBloque }
func (b Balance) TotalHistorico() int { return b.Vencidas + b.Pendientes + b.Truncas }

// Allotment returns the usable days of kind.
func (b Balance) Allotment(kind Kind) int {
	if kind == KindBloque {
		return b.DiasBloque
	}
	return b.DiasLibres
}

// =============================================================================
// REQUEST
// =============================================================================

type RequestState string

const (
	EstadoPendiente RequestState = "pendiente"
	EstadoAprobado  RequestState = "aprobado"
	EstadoRechazado RequestState = "rechazado"
	EstadoCancelado RequestState = "cancelado"
)

func (s RequestState) Terminal() bool {
	return s == EstadoRechazado || s == EstadoCancelado
}

// VacationRequest is never deleted. Version increments on every transition
// and guards the compare-and-swap update.
type VacationRequest struct {
	ID          string
	RequesterID generic.EntityID
	ApproverID  generic.EntityID
	SuperiorID  generic.EntityID

	Kind        Kind
	Days        int
	Start       generic.TimePoint
	End         generic.TimePoint
	WeekendDays int
	Period      int

	State       RequestState
	SubmittedAt time.Time
	DecidedAt   *time.Time
	Comments    string
	Notes       string

	CancelReason string
	CancelledBy  generic.EntityID
	CancelledAt  *time.Time

	TokenID string
	Version int
}

// Range returns the requested dates as a period.
func (r VacationRequest) Range() generic.Period {
	return generic.Period{Start: r.Start, End: r.End}
}

// Token rebuilds the reservation handle bound to the request.
func (r VacationRequest) Token() ReservationToken {
	return ReservationToken{
		ID:         r.TokenID,
		EmployeeID: r.RequesterID,
		Period:     r.Period,
		Kind:       r.Kind,
		Days:       r.Days,
	}
}

// =============================================================================
// RESERVATION TOKEN
// =============================================================================

// ReservationToken binds a ledger decrement to one pending request.
type ReservationToken struct {
	ID         string
	EmployeeID generic.EntityID
	Period     int
	Kind       Kind
	Days       int
}

type ReservationState string

const (
	ReservationUnknown   ReservationState = ""
	ReservationReserved  ReservationState = "reserved"
	ReservationCommitted ReservationState = "committed"
	ReservationReleased  ReservationState = "released"
)

// =============================================================================
// ACTOR - Authenticated caller
// =============================================================================

const (
	RoleAdmin            = "Admin"
	PermissionAdminister = "vacaciones.administrar"
)

// Actor is the identity supplied by the authentication collaborator.
type Actor struct {
	ID          generic.EntityID
	Email       string
	Name        string
	Roles       []string
	Permissions []string
	Active      bool
}

// IsAdmin reports the override that bypasses the hierarchy check.
func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, RoleAdmin) {
			return true
		}
	}
	for _, p := range a.Permissions {
		if p == PermissionAdminister {
			return true
		}
	}
	return false
}

// Clock returns the current instant. Tests inject a fixed clock.
type Clock func() time.Time
