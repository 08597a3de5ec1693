package vacation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// BALANCE SERVICE - Read path with snapshot cache
// =============================================================================
//
// The stored snapshot is a cache keyed by (employee, period) and tagged with
// its FechaCorte:
//
//	cutoff == FechaCorte    return the snapshot
//	cutoff >  FechaCorte    recompute and replace the snapshot
//	cutoff <  FechaCorte    recompute, leave the snapshot alone
//	no snapshot             recompute and store
//
// Reservations delete the snapshot of their period; commits and releases
// delete every snapshot of the employee, since consumed days drain the aging
// buckets of all periods. A recompute that will be stored runs under the
// ledger lock and inside one store transaction, so no mutation can land
// between reading the ledger and saving the result.

const teamFanOut = 8

type BalanceService struct {
	store  TxStore
	locker generic.Locker
	policy AccrualPolicy
	clock  Clock
	logger *zap.Logger
	group  singleflight.Group
}

func NewBalanceService(d Deps) *BalanceService {
	d = d.withDefaults()
	return &BalanceService{
		store:  d.Store,
		locker: d.Locker,
		policy: d.Policy,
		clock:  d.Clock,
		logger: d.Logger.Named("vacation.balance"),
	}
}

// Today is the default cutoff.
func (s *BalanceService) Today() generic.TimePoint { return generic.DayOf(s.clock()) }

// Balance returns the balance of employee for period at cutoff.
func (s *BalanceService) Balance(ctx context.Context, employee generic.EntityID, period int, cutoff generic.TimePoint) (Balance, error) {
	if err := generic.ValidatePeriodYear(period); err != nil {
		return Balance{}, err
	}
	if cutoff.IsZero() {
		cutoff = s.Today()
	}

	key := fmt.Sprintf("%s:%d:%s", employee, period, cutoff)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.load(ctx, employee, period, cutoff)
	})
	if err != nil {
		return Balance{}, err
	}
	return v.(Balance), nil
}

func (s *BalanceService) load(ctx context.Context, employee generic.EntityID, period int, cutoff generic.TimePoint) (Balance, error) {
	snap, ok, err := s.store.GetSnapshot(ctx, employee, period)
	if err != nil {
		return Balance{}, generic.WrapStorage("get snapshot", err)
	}
	if ok && snap.FechaCorte.Equal(cutoff) {
		return snap, nil
	}

	// An older cutoff is answered without touching the cache.
	if ok && cutoff.Before(snap.FechaCorte) {
		e, err := s.store.GetEmployee(ctx, employee)
		if err != nil {
			return Balance{}, generic.WrapStorage("get employee", err)
		}
		return s.compute(ctx, s.store, e, period, cutoff)
	}

	var b Balance
	err = s.serialized(ctx, employee, period, func(tx Store) error {
		e, err := tx.GetEmployee(ctx, employee)
		if err != nil {
			return generic.WrapStorage("get employee", err)
		}
		if b, err = s.compute(ctx, tx, e, period, cutoff); err != nil {
			return err
		}
		if err := tx.SaveSnapshot(ctx, b); err != nil {
			// The computed value is still correct; only caching failed.
			s.logger.Error("save snapshot failed",
				zap.String("employee_id", string(employee)), zap.Int("period", period), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return Balance{}, err
	}
	return b, nil
}

// serialized runs fn under the (employee, period) ledger lock and in one
// store transaction, the same order the ledger writers use.
func (s *BalanceService) serialized(ctx context.Context, employee generic.EntityID, period int, fn func(Store) error) error {
	unlock, err := s.locker.Lock(ctx, generic.LockKey(employee, period))
	if err != nil {
		return generic.WrapStorage("acquire ledger lock", err)
	}
	defer unlock()
	return s.store.WithTx(ctx, fn)
}

// compute combines the pure accrual with the ledger: committed days drain
// the historical buckets, every open or committed reservation reduces the
// allotment of its kind.
func (s *BalanceService) compute(ctx context.Context, st Store, e Employee, period int, cutoff generic.TimePoint) (Balance, error) {
	b := ComputeBalance(e, period, cutoff, s.policy)

	all, err := st.LoadByEntity(ctx, e.ID)
	if err != nil {
		return Balance{}, generic.WrapStorage("load ledger", err)
	}
	b = ApplyConsumption(b, generic.Summarize(all).Consumed.WholeDays(), s.policy)

	var inPeriod []generic.Transaction
	for _, tx := range all {
		if tx.Period == period {
			inPeriod = append(inPeriod, tx)
		}
	}
	b.DiasLibres = max(0, b.DiasLibres+generic.Summarize(generic.FilterResource(inPeriod, KindLibres)).Net.WholeDays())
	b.DiasBloque = max(0, b.DiasBloque+generic.Summarize(generic.FilterResource(inPeriod, KindBloque)).Net.WholeDays())
	return b, nil
}

// =============================================================================
// VIEWS
// =============================================================================

// BalanceView is a balance with the employee and manager it belongs to.
type BalanceView struct {
	Employee Employee
	Manager  *Employee
	Balance  Balance
}

// View returns the balance with employee and manager details.
func (s *BalanceService) View(ctx context.Context, employee generic.EntityID, period int, cutoff generic.TimePoint) (BalanceView, error) {
	e, err := s.store.GetEmployee(ctx, employee)
	if err != nil {
		return BalanceView{}, generic.WrapStorage("get employee", err)
	}
	b, err := s.Balance(ctx, employee, period, cutoff)
	if err != nil {
		return BalanceView{}, err
	}
	v := BalanceView{Employee: e, Balance: b}
	if e.HasJefe() {
		m, err := s.store.GetEmployee(ctx, e.JefeID)
		if err == nil {
			v.Manager = &m
		}
	}
	return v, nil
}

// History returns one balance per period from the hire year through the
// cutoff year. Each period is evaluated at min(cutoff, Dec 31).
func (s *BalanceService) History(ctx context.Context, employee generic.EntityID, cutoff generic.TimePoint) ([]Balance, error) {
	if cutoff.IsZero() {
		cutoff = s.Today()
	}
	e, err := s.store.GetEmployee(ctx, employee)
	if err != nil {
		return nil, generic.WrapStorage("get employee", err)
	}
	if e.HireDate.IsZero() || cutoff.Before(e.HireDate) {
		return nil, nil
	}

	first := max(e.HireDate.Year(), generic.MinPeriodYear)
	last := min(cutoff.Year(), generic.MaxPeriodYear)
	var out []Balance
	for p := first; p <= last; p++ {
		b, err := s.compute(ctx, s.store, e, p, AllotmentCutoff(p, cutoff))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// TeamBalances returns the balances of manager's subordinates up to depth
// levels (0 = unlimited), computed concurrently.
func (s *BalanceService) TeamBalances(ctx context.Context, manager generic.EntityID, period int, depth int, cutoff generic.TimePoint) ([]BalanceView, error) {
	subs, err := NewHierarchyResolver(s.store).Subordinates(ctx, manager, depth)
	if err != nil {
		return nil, err
	}
	byID := make(map[generic.EntityID]Employee, len(subs)+1)
	for _, e := range subs {
		byID[e.ID] = e
	}
	if m, err := s.store.GetEmployee(ctx, manager); err == nil {
		byID[m.ID] = m
	}

	out := make([]BalanceView, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(teamFanOut)
	for i, e := range subs {
		g.Go(func() error {
			b, err := s.Balance(gctx, e.ID, period, cutoff)
			if err != nil {
				return fmt.Errorf("balance of %s: %w", e.ID, err)
			}
			v := BalanceView{Employee: e, Balance: b}
			if jefe, ok := byID[e.JefeID]; ok {
				v.Manager = &jefe
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
