/*
ledger.go - Reservation ledger for vacation allotments

PURPOSE:
  Reserve / Commit / Release on top of the append-only generic ledger.
  Every operation for one (employee, period) runs under the Locker and
  inside a single store transaction, so it either fully applies or leaves
  nothing behind.

TRANSACTIONS PER TOKEN t:
  Reserve   TxPending     -d   key reserve:t
  Commit    TxReversal    +d   key commit:t
            TxConsumption -d   key commit:t:consume
  Release   TxReversal    +d   key release:t

  The keys make every step idempotent at the storage level: a retried
  commit or a second release can never move the balance twice.

AVAILABILITY:
  available(kind) = AllotmentFor(kind) + net ledger delta of kind

  A reservation fails with InsufficientBalanceError when days > available.

SNAPSHOTS:
  Each mutation invalidates the cached balance in the same transaction.
*/
package vacation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/vacation-engine/generic"
)

// Deps wires the services of this package.
type Deps struct {
	Store  TxStore
	Policy AccrualPolicy
	Locker generic.Locker
	Clock  Clock
	Logger *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Policy == nil {
		d.Policy = DefaultPolicy()
	}
	if d.Locker == nil {
		d.Locker = generic.NewKeyedMutex()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type BalanceLedger struct {
	store  TxStore
	policy AccrualPolicy
	locker generic.Locker
	clock  Clock
	logger *zap.Logger
}

func NewBalanceLedger(d Deps) *BalanceLedger {
	d = d.withDefaults()
	return &BalanceLedger{
		store:  d.Store,
		policy: d.Policy,
		locker: d.Locker,
		clock:  d.Clock,
		logger: d.Logger.Named("vacation.ledger"),
	}
}

// Reserve holds days of kind for employee in period.
func (l *BalanceLedger) Reserve(ctx context.Context, employee generic.EntityID, period int, kind Kind, days int) (ReservationToken, error) {
	var token ReservationToken
	err := l.locked(ctx, employee, period, func(s Store) error {
		var err error
		token, err = l.reserve(ctx, s, employee, period, kind, days, employee)
		return err
	})
	return token, err
}

// Commit finalizes a reservation on approval. The available balance does
// not change. Committing twice is a no-op; committing a released token is
// an invalid transition.
func (l *BalanceLedger) Commit(ctx context.Context, token ReservationToken) error {
	return l.locked(ctx, token.EmployeeID, token.Period, func(s Store) error {
		return l.commit(ctx, s, token, token.EmployeeID)
	})
}

// Release restores the reserved days. Releasing twice is a no-op.
func (l *BalanceLedger) Release(ctx context.Context, token ReservationToken) error {
	return l.locked(ctx, token.EmployeeID, token.Period, func(s Store) error {
		return l.release(ctx, s, token, token.EmployeeID)
	})
}

// State derives the lifecycle of a token from its transactions.
func (l *BalanceLedger) State(ctx context.Context, tokenID string) (ReservationState, error) {
	txs, err := l.store.LoadByReference(ctx, tokenID)
	if err != nil {
		return ReservationUnknown, generic.WrapStorage("load reservation", err)
	}
	return reservationState(txs), nil
}

// Available returns the days of kind that can still be reserved.
func (l *BalanceLedger) Available(ctx context.Context, employee generic.EntityID, period int, kind Kind) (int, error) {
	e, err := l.store.GetEmployee(ctx, employee)
	if err != nil {
		return 0, generic.WrapStorage("get employee", err)
	}
	return l.available(ctx, l.store, e, period, kind)
}

// =============================================================================
// IN-TRANSACTION OPERATIONS
// =============================================================================
// Used by RequestLifecycleManager, which already holds the lock and the
// store transaction.

func (l *BalanceLedger) locked(ctx context.Context, employee generic.EntityID, period int, fn func(Store) error) error {
	unlock, err := l.locker.Lock(ctx, generic.LockKey(employee, period))
	if err != nil {
		return generic.WrapStorage("acquire ledger lock", err)
	}
	defer unlock()
	return l.store.WithTx(ctx, fn)
}

func (l *BalanceLedger) reserve(ctx context.Context, s Store, employee generic.EntityID, period int, kind Kind, days int, actor generic.EntityID) (ReservationToken, error) {
	if !kind.Valid() {
		return ReservationToken{}, &generic.ValidationError{Field: "tipoVacaciones", Reason: "must be libres or bloque"}
	}
	if days <= 0 {
		return ReservationToken{}, &generic.ValidationError{Field: "diasSolicitados", Reason: "must be greater than 0"}
	}
	if err := generic.ValidatePeriodYear(period); err != nil {
		return ReservationToken{}, err
	}

	e, err := s.GetEmployee(ctx, employee)
	if err != nil {
		return ReservationToken{}, generic.WrapStorage("get employee", err)
	}
	available, err := l.available(ctx, s, e, period, kind)
	if err != nil {
		return ReservationToken{}, err
	}
	if days > available {
		return ReservationToken{}, &generic.InsufficientBalanceError{
			EntityID:  employee,
			Period:    period,
			Resource:  string(kind),
			Available: available,
			Requested: days,
		}
	}

	token := ReservationToken{ID: uuid.NewString(), EmployeeID: employee, Period: period, Kind: kind, Days: days}
	tx := l.newTx(token, generic.TxPending, -days, "reserve:"+token.ID, "reserve", actor)
	if err := generic.NewLedger(s).Append(ctx, tx); err != nil {
		return ReservationToken{}, generic.WrapStorage("append reserve", err)
	}
	if err := s.InvalidateSnapshot(ctx, employee, period); err != nil {
		return ReservationToken{}, generic.WrapStorage("invalidate snapshot", err)
	}

	l.logger.Debug("days reserved",
		zap.String("token", token.ID),
		zap.String("employee_id", string(employee)),
		zap.Int("period", period),
		zap.String("kind", string(kind)),
		zap.Int("days", days),
		zap.Int("available_before", available))
	return token, nil
}

func (l *BalanceLedger) commit(ctx context.Context, s Store, token ReservationToken, actor generic.EntityID) error {
	txs, stored, err := l.loadToken(ctx, s, token)
	if err != nil {
		return err
	}
	switch generic.StateOf(txs) {
	case generic.RefConsumed:
		return nil
	case generic.RefReversed:
		return fmt.Errorf("commit released reservation %s: %w", token.ID, generic.ErrInvalidStateTransition)
	}

	batch := []generic.Transaction{
		l.newTx(stored, generic.TxReversal, stored.Days, "commit:"+stored.ID, "commit", actor),
		l.newTx(stored, generic.TxConsumption, -stored.Days, "commit:"+stored.ID+":consume", "commit", actor),
	}
	if err := generic.NewLedger(s).AppendBatch(ctx, batch); err != nil {
		return generic.WrapStorage("append commit", err)
	}
	// Consumption drains the aging buckets of every period.
	if err := s.InvalidateEmployeeSnapshots(ctx, stored.EmployeeID); err != nil {
		return generic.WrapStorage("invalidate snapshots", err)
	}
	l.logger.Debug("reservation committed", zap.String("token", stored.ID), zap.Int("days", stored.Days))
	return nil
}

func (l *BalanceLedger) release(ctx context.Context, s Store, token ReservationToken, actor generic.EntityID) error {
	txs, stored, err := l.loadToken(ctx, s, token)
	if err != nil {
		return err
	}
	if generic.StateOf(txs) == generic.RefReversed {
		return nil
	}

	tx := l.newTx(stored, generic.TxReversal, stored.Days, "release:"+stored.ID, "release", actor)
	if err := generic.NewLedger(s).Append(ctx, tx); err != nil {
		return generic.WrapStorage("append release", err)
	}
	if err := s.InvalidateEmployeeSnapshots(ctx, stored.EmployeeID); err != nil {
		return generic.WrapStorage("invalidate snapshots", err)
	}
	l.logger.Debug("reservation released", zap.String("token", stored.ID), zap.Int("days", stored.Days))
	return nil
}

// loadToken rebuilds the token from its pending transaction so amounts always
// come from the ledger, never from the caller.
func (l *BalanceLedger) loadToken(ctx context.Context, s Store, token ReservationToken) ([]generic.Transaction, ReservationToken, error) {
	txs, err := s.LoadByReference(ctx, token.ID)
	if err != nil {
		return nil, ReservationToken{}, generic.WrapStorage("load reservation", err)
	}
	for _, tx := range txs {
		if tx.Type != generic.TxPending {
			continue
		}
		return txs, ReservationToken{
			ID:         token.ID,
			EmployeeID: tx.EntityID,
			Period:     tx.Period,
			Kind:       Kind(tx.ResourceType.ResourceID()),
			Days:       tx.Delta.Neg().WholeDays(),
		}, nil
	}
	return nil, ReservationToken{}, notFound("reservation", token.ID)
}

func (l *BalanceLedger) available(ctx context.Context, s Store, e Employee, period int, kind Kind) (int, error) {
	allotment := AllotmentFor(e, period, generic.DayOf(l.clock()), l.policy, kind)
	net, err := generic.NewLedger(s).Net(ctx, e.ID, period, kind)
	if err != nil {
		return 0, generic.WrapStorage("load ledger", err)
	}
	return allotment + net.WholeDays(), nil
}

func (l *BalanceLedger) newTx(token ReservationToken, typ generic.TransactionType, delta int, key, reason string, actor generic.EntityID) generic.Transaction {
	now := l.clock()
	return generic.Transaction{
		ID:             generic.TransactionID(uuid.NewString()),
		EntityID:       token.EmployeeID,
		Period:         token.Period,
		ResourceType:   token.Kind,
		EffectiveAt:    generic.DayOf(now),
		Delta:          generic.Days(delta),
		Type:           typ,
		ReferenceID:    token.ID,
		Reason:         reason,
		IdempotencyKey: key,
		CreatedBy:      string(actor),
		CreatedAt:      now.UTC(),
	}
}

func reservationState(txs []generic.Transaction) ReservationState {
	switch generic.StateOf(txs) {
	case generic.RefHeld:
		return ReservationReserved
	case generic.RefConsumed:
		return ReservationCommitted
	case generic.RefReversed:
		return ReservationReleased
	}
	return ReservationUnknown
}
