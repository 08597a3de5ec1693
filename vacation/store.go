package vacation

import (
	"context"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// EmployeeStore persists the employee forest.
type EmployeeStore interface {
	// GetEmployee returns generic.ErrNotFound for unknown ids.
	GetEmployee(ctx context.Context, id generic.EntityID) (Employee, error)

	// ListSubordinates returns the direct reports of id.
	ListSubordinates(ctx context.Context, id generic.EntityID) ([]Employee, error)

	// SaveEmployee inserts or replaces an employee.
	SaveEmployee(ctx context.Context, e Employee) error
}

// RequestStore persists vacation requests. Requests are never deleted.
type RequestStore interface {
	CreateRequest(ctx context.Context, r VacationRequest) error

	// GetRequest returns generic.ErrNotFound for unknown ids.
	GetRequest(ctx context.Context, id string) (VacationRequest, error)

	// TransitionRequest writes r only if the stored row is still in state
	// from at version. The stored version becomes version+1. Otherwise it
	// returns generic.ErrConcurrentModification.
	TransitionRequest(ctx context.Context, r VacationRequest, from RequestState, version int) error

	ListRequestsByEmployee(ctx context.Context, id generic.EntityID) ([]VacationRequest, error)
	ListRequestsByState(ctx context.Context, state RequestState) ([]VacationRequest, error)

	// FindOverlapping returns requests of id in one of states whose range
	// shares a day with [start, end].
	FindOverlapping(ctx context.Context, id generic.EntityID, start, end generic.TimePoint, states ...RequestState) ([]VacationRequest, error)
}

// SnapshotStore caches computed balances per employee and period.
type SnapshotStore interface {
	// GetSnapshot returns ok=false when nothing is cached.
	GetSnapshot(ctx context.Context, id generic.EntityID, period int) (b Balance, ok bool, err error)
	SaveSnapshot(ctx context.Context, b Balance) error
	InvalidateSnapshot(ctx context.Context, id generic.EntityID, period int) error
	// InvalidateEmployeeSnapshots drops the cached balances of every period.
	InvalidateEmployeeSnapshots(ctx context.Context, id generic.EntityID) error
}

// Store is everything the services read and write.
type Store interface {
	generic.EntityStore
	EmployeeStore
	RequestStore
	SnapshotStore
}

// TxStore runs fn inside one database transaction. fn must only use the
// Store it is given.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
