package vacation_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// BALANCE SERVICE
// =============================================================================

func TestBalance_ReflectsLedger(t *testing.T) {
	// GIVEN: emp-1 hired 2020-01-01, today 2025-02-01 (61 whole months)
	// WHEN: 4 libres days are approved and 3 more are pending
	// THEN: the approved days drain vencidas, both reduce diasLibres
	f := newFixture(t, vacation.DefaultPolicy())

	b, err := f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, 120, b.Vencidas)
	assert.Equal(t, 30, b.Pendientes)
	assert.Equal(t, 2, b.Truncas)
	assert.Equal(t, 15, b.DiasLibres)
	assert.Equal(t, "2025-02-01", b.FechaCorte.String())

	approved := f.submit(libres("emp-1", 4, "2025-03-10", "2025-03-13"))
	_, err = f.manager.Approve(f.ctx, approved.ID, user("jefe-1"), "")
	require.NoError(t, err)
	f.submit(libres("emp-1", 3, "2025-04-07", "2025-04-09"))

	b, err = f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, 116, b.Vencidas)
	assert.Equal(t, 30, b.Pendientes)
	assert.Equal(t, 8, b.DiasLibres)
	assert.Equal(t, 15, b.DiasBloque)
}

func TestBalance_SnapshotCache(t *testing.T) {
	f := newFixture(t, vacation.DefaultPolicy())

	// No snapshot: computed and stored.
	_, err := f.balances.Balance(f.ctx, "emp-1", 2025, date("2025-02-01"))
	require.NoError(t, err)
	snap, ok, err := f.store.GetSnapshot(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-02-01", snap.FechaCorte.String())

	// Older cutoff: computed, snapshot untouched.
	old, err := f.balances.Balance(f.ctx, "emp-1", 2025, date("2025-01-15"))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", old.FechaCorte.String())
	snap, _, err = f.store.GetSnapshot(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", snap.FechaCorte.String())

	// Newer cutoff: replaces the snapshot.
	_, err = f.balances.Balance(f.ctx, "emp-1", 2025, date("2025-03-01"))
	require.NoError(t, err)
	snap, _, err = f.store.GetSnapshot(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", snap.FechaCorte.String())

	// Equal cutoff: the snapshot is returned as is.
	snap.Pendientes = 99
	require.NoError(t, f.store.SaveSnapshot(f.ctx, snap))
	cached, err := f.balances.Balance(f.ctx, "emp-1", 2025, date("2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 99, cached.Pendientes)
}

func TestBalance_ReservationInvalidatesSnapshot(t *testing.T) {
	f := newFixture(t, vacation.DefaultPolicy())

	before, err := f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)

	f.submit(libres("emp-1", 5, "2025-03-10", "2025-03-14"))
	_, ok, err := f.store.GetSnapshot(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, before.DiasLibres-5, after.DiasLibres)
}

func TestBalance_CommitInOtherPeriodRefreshesAgingBuckets(t *testing.T) {
	// GIVEN: the 2025 balance of emp-1 is cached
	f := newFixture(t, vacation.DefaultPolicy())
	before, err := f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	require.Equal(t, 120, before.Vencidas)

	// WHEN: 4 days of Periodo 2024 are approved
	r := f.submit(libres("emp-1", 4, "2024-03-04", "2024-03-07"))
	_, err = f.manager.Approve(f.ctx, r.ID, user("jefe-1"), "")
	require.NoError(t, err)

	// THEN: the 2025 aging buckets see the consumption
	after, err := f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, 116, after.Vencidas)
	assert.Equal(t, before.TotalHistorico()-4, after.TotalHistorico())
	assert.Equal(t, before.DiasLibres, after.DiasLibres)
}

// interleavingStore calls hook once, right after the first ledger read made
// through it, inside or outside a transaction.
type interleavingStore struct {
	vacation.TxStore
	once sync.Once
	hook func()
}

func (s *interleavingStore) LoadByEntity(ctx context.Context, id generic.EntityID) ([]generic.Transaction, error) {
	txs, err := s.TxStore.LoadByEntity(ctx, id)
	s.once.Do(s.hook)
	return txs, err
}

func (s *interleavingStore) WithTx(ctx context.Context, fn func(vacation.Store) error) error {
	return s.TxStore.WithTx(ctx, func(tx vacation.Store) error {
		return fn(&interleavingTx{Store: tx, parent: s})
	})
}

type interleavingTx struct {
	vacation.Store
	parent *interleavingStore
}

func (s *interleavingTx) LoadByEntity(ctx context.Context, id generic.EntityID) ([]generic.Transaction, error) {
	txs, err := s.Store.LoadByEntity(ctx, id)
	s.parent.once.Do(s.parent.hook)
	return txs, err
}

func TestBalance_SubmitDuringRecomputeIsNotLostByCache(t *testing.T) {
	// GIVEN: a submission that tries to commit while the balance is being
	// recomputed from the ledger
	f := newFixture(t, fivePolicy())
	submitted := make(chan error, 1)
	store := &interleavingStore{TxStore: f.store}
	store.hook = func() {
		go func() {
			_, err := f.manager.Submit(f.ctx, libres("emp-1", 5, "2025-03-10", "2025-03-14"))
			submitted <- err
		}()
		select {
		case err := <-submitted:
			submitted <- err
		case <-time.After(200 * time.Millisecond):
		}
	}
	deps := f.deps
	deps.Store = store

	// WHEN
	_, err := vacation.NewBalanceService(deps).Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	require.NoError(t, <-submitted)

	// THEN: the next read agrees with the ledger
	assert.Equal(t, 0, f.available("emp-1", 2025, vacation.KindLibres))
	b, err := vacation.NewBalanceService(f.deps).Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, 0, b.DiasLibres)
}

func TestBalance_BucketsStayNonNegativeAcrossLifecycle(t *testing.T) {
	// GIVEN: 5 libres days and a fixed sequence of random operations
	f := newFixture(t, fivePolicy())
	rng := rand.New(rand.NewSource(7))
	var requests []vacation.VacationRequest
	monday := date("2025-03-03")

	for i := 0; i < 40; i++ {
		op := rng.Intn(4)
		if op == 0 || len(requests) == 0 {
			days := 1 + rng.Intn(3)
			from := monday.AddDays(7 * i)
			r, err := f.manager.Submit(f.ctx, libres("emp-1", days, from.String(), from.AddDays(days-1).String()))
			if err != nil {
				require.ErrorIs(t, err, generic.ErrInsufficientBalance)
			} else {
				requests = append(requests, r)
			}
		} else {
			r := requests[rng.Intn(len(requests))]
			var err error
			switch op {
			case 1:
				_, err = f.manager.Approve(f.ctx, r.ID, user("jefe-1"), "")
			case 2:
				_, err = f.manager.Reject(f.ctx, r.ID, user("jefe-1"), "")
			case 3:
				_, err = f.manager.Cancel(f.ctx, r.ID, user("emp-1"), "")
			}
			if err != nil {
				require.ErrorIs(t, err, generic.ErrInvalidStateTransition)
			}
		}

		// THEN: after every step no bucket is negative and the cache agrees
		// with the ledger
		b, err := f.balances.Balance(f.ctx, "emp-1", 2025, generic.TimePoint{})
		require.NoError(t, err)
		for name, v := range map[string]int{
			"vencidas":   b.Vencidas,
			"pendientes": b.Pendientes,
			"truncas":    b.Truncas,
			"diasLibres": b.DiasLibres,
			"diasBloque": b.DiasBloque,
		} {
			assert.GreaterOrEqual(t, v, 0, "step %d: %s", i, name)
		}
		assert.Equal(t, f.available("emp-1", 2025, vacation.KindLibres), b.DiasLibres, "step %d", i)
	}
}

func TestBalance_LockWaitCancelledIsStorageError(t *testing.T) {
	f := newFixture(t, vacation.DefaultPolicy())
	unlock, err := f.deps.Locker.Lock(f.ctx, generic.LockKey("emp-1", 2025))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(f.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = f.manager.Ledger().Reserve(ctx, "emp-1", 2025, vacation.KindLibres, 1)

	require.Error(t, err)
	assert.Equal(t, generic.KindStorage, generic.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBalance_InvalidPeriod(t *testing.T) {
	f := newFixture(t, vacation.DefaultPolicy())
	_, err := f.balances.Balance(f.ctx, "emp-1", 2019, generic.TimePoint{})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.balances.Balance(f.ctx, "ghost", 2025, generic.TimePoint{})
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestBalanceView_IncludesManager(t *testing.T) {
	f := newFixture(t, vacation.DefaultPolicy())

	v, err := f.balances.View(f.ctx, "emp-2", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, generic.EntityID("emp-2"), v.Employee.ID)
	require.NotNil(t, v.Manager)
	assert.Equal(t, generic.EntityID("jefe-1"), v.Manager.ID)

	root, err := f.balances.View(f.ctx, "ceo", 2025, generic.TimePoint{})
	require.NoError(t, err)
	assert.Nil(t, root.Manager)
}

func TestHistory_OnePerPeriodSinceHire(t *testing.T) {
	// emp-2 hired 2021-06-01: periods 2021..2025
	f := newFixture(t, vacation.DefaultPolicy())

	hist, err := f.balances.History(f.ctx, "emp-2", generic.TimePoint{})
	require.NoError(t, err)
	require.Len(t, hist, 5)

	assert.Equal(t, 2021, hist[0].Period)
	assert.Equal(t, "2021-12-31", hist[0].FechaCorte.String())
	assert.Equal(t, 7, hist[0].DiasLibres) // floor(15 × 6 / 12)
	assert.Equal(t, 15, hist[1].DiasLibres)
	assert.Equal(t, 2025, hist[4].Period)
	assert.Equal(t, "2025-02-01", hist[4].FechaCorte.String())

	none, err := f.balances.History(f.ctx, "emp-2", date("2021-05-31"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTeamBalances(t *testing.T) {
	f := newFixture(t, vacation.DefaultPolicy())
	f.submit(libres("emp-1", 2, "2025-03-10", "2025-03-11"))

	team, err := f.balances.TeamBalances(f.ctx, "jefe-1", 2025, 1, generic.TimePoint{})
	require.NoError(t, err)
	require.Len(t, team, 2)

	byID := map[generic.EntityID]vacation.BalanceView{}
	for _, v := range team {
		byID[v.Employee.ID] = v
		require.NotNil(t, v.Manager)
		assert.Equal(t, generic.EntityID("jefe-1"), v.Manager.ID)
	}
	assert.Equal(t, 13, byID["emp-1"].Balance.DiasLibres)
	assert.Equal(t, 15, byID["emp-2"].Balance.DiasLibres)

	whole, err := f.balances.TeamBalances(f.ctx, "ceo", 2025, 0, generic.TimePoint{})
	require.NoError(t, err)
	assert.Len(t, whole, 3)
}
