package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/store/sqlite"
	"github.com/warp/vacation-engine/vacation"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

func seedEmployee(t *testing.T, s *sqlite.Store, id, jefe string) {
	t.Helper()
	require.NoError(t, s.SaveEmployee(context.Background(), vacation.Employee{
		ID:       generic.EntityID(id),
		Name:     id,
		HireDate: day("2020-01-01"),
		JefeID:   generic.EntityID(jefe),
	}))
}

func pendingRequest(id, emp, from, to string) vacation.VacationRequest {
	return vacation.VacationRequest{
		ID:          id,
		RequesterID: generic.EntityID(emp),
		Kind:        vacation.KindLibres,
		Days:        1,
		Start:       day(from),
		End:         day(to),
		Period:      day(from).Year(),
		State:       vacation.EstadoPendiente,
		SubmittedAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		TokenID:     "tok-" + id,
		Version:     1,
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactions_RoundTripAndIdempotency(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	tx := generic.Transaction{
		ID:             "tx-1",
		EntityID:       "emp-1",
		Period:         2025,
		ResourceType:   vacation.KindLibres,
		EffectiveAt:    day("2025-02-01"),
		Delta:          generic.Days(-3),
		Type:           generic.TxPending,
		ReferenceID:    "tok-1",
		IdempotencyKey: "reserve:tok-1",
	}
	require.NoError(t, s.Append(ctx, tx))

	dup := tx
	dup.ID = "tx-2"
	assert.ErrorIs(t, s.Append(ctx, dup), generic.ErrDuplicateIdempotencyKey)

	loaded, err := s.Load(ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, -3, loaded[0].Delta.WholeDays())
	assert.Equal(t, "libres", loaded[0].ResourceType.ResourceID())
	assert.Equal(t, 2025, loaded[0].Period)

	other, err := s.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Empty(t, other)

	exists, err := s.Exists(ctx, "reserve:tok-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAppendBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Append(ctx, generic.Transaction{
		ID: "a", EntityID: "emp-1", Period: 2025, ResourceType: vacation.KindLibres,
		EffectiveAt: day("2025-02-01"), Delta: generic.Days(-1), Type: generic.TxPending,
		IdempotencyKey: "k1",
	}))

	err := s.AppendBatch(ctx, []generic.Transaction{
		{ID: "b", EntityID: "emp-1", Period: 2025, ResourceType: vacation.KindLibres,
			EffectiveAt: day("2025-02-01"), Delta: generic.Days(1), Type: generic.TxReversal, IdempotencyKey: "k2"},
		{ID: "c", EntityID: "emp-1", Period: 2025, ResourceType: vacation.KindLibres,
			EffectiveAt: day("2025-02-01"), Delta: generic.Days(-1), Type: generic.TxConsumption, IdempotencyKey: "k1"},
	})
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	loaded, err := s.LoadByEntity(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedEmployee(t, s, "emp-1", "")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx vacation.Store) error {
		require.NoError(t, tx.CreateRequest(ctx, pendingRequest("r1", "emp-1", "2025-03-10", "2025-03-10")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetRequest(ctx, "r1")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_UpsertAndSubordinates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedEmployee(t, s, "boss", "")
	seedEmployee(t, s, "a", "boss")
	seedEmployee(t, s, "b", "boss")

	subs, err := s.ListSubordinates(ctx, "boss")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	a, err := s.GetEmployee(ctx, "a")
	require.NoError(t, err)
	a.JefeID = ""
	a.Foreign = true
	require.NoError(t, s.SaveEmployee(ctx, a))

	a, err = s.GetEmployee(ctx, "a")
	require.NoError(t, err)
	assert.False(t, a.HasJefe())
	assert.True(t, a.Foreign)
	assert.Equal(t, "2020-01-01", a.HireDate.String())

	_, err = s.GetEmployee(ctx, "ghost")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestTransitionRequest_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedEmployee(t, s, "emp-1", "")
	r := pendingRequest("r1", "emp-1", "2025-03-10", "2025-03-12")
	require.NoError(t, s.CreateRequest(ctx, r))

	now := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	approved := r
	approved.State = vacation.EstadoAprobado
	approved.ApproverID = "boss"
	approved.DecidedAt = &now
	require.NoError(t, s.TransitionRequest(ctx, approved, vacation.EstadoPendiente, 1))

	got, err := s.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, vacation.EstadoAprobado, got.State)
	assert.Equal(t, 2, got.Version)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, now.Equal(*got.DecidedAt))

	// Stale version loses.
	rejected := r
	rejected.State = vacation.EstadoRechazado
	err = s.TransitionRequest(ctx, rejected, vacation.EstadoPendiente, 1)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	missing := pendingRequest("nope", "emp-1", "2025-03-10", "2025-03-10")
	err = s.TransitionRequest(ctx, missing, vacation.EstadoPendiente, 1)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestFindOverlapping(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedEmployee(t, s, "emp-1", "")
	require.NoError(t, s.CreateRequest(ctx, pendingRequest("r1", "emp-1", "2025-03-10", "2025-03-14")))

	cancelled := pendingRequest("r2", "emp-1", "2025-04-01", "2025-04-03")
	cancelled.State = vacation.EstadoCancelado
	require.NoError(t, s.CreateRequest(ctx, cancelled))

	active := []vacation.RequestState{vacation.EstadoPendiente, vacation.EstadoAprobado}
	cases := []struct {
		from, to string
		want     int
	}{
		{"2025-03-14", "2025-03-20", 1}, // touches the last day
		{"2025-03-01", "2025-03-10", 1}, // touches the first day
		{"2025-03-15", "2025-03-20", 0},
		{"2025-04-01", "2025-04-03", 0}, // only a cancelled request there
	}
	for _, tc := range cases {
		got, err := s.FindOverlapping(ctx, "emp-1", day(tc.from), day(tc.to), active...)
		require.NoError(t, err)
		assert.Len(t, got, tc.want, "%s..%s", tc.from, tc.to)
	}
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedEmployee(t, s, "emp-1", "")
	seedEmployee(t, s, "emp-2", "")

	first := pendingRequest("r1", "emp-1", "2025-03-10", "2025-03-10")
	second := pendingRequest("r2", "emp-1", "2025-03-11", "2025-03-11")
	second.SubmittedAt = first.SubmittedAt.Add(time.Hour)
	third := pendingRequest("r3", "emp-2", "2025-03-11", "2025-03-11")
	third.State = vacation.EstadoAprobado
	for _, r := range []vacation.VacationRequest{first, second, third} {
		require.NoError(t, s.CreateRequest(ctx, r))
	}

	own, err := s.ListRequestsByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "r2", own[0].ID)

	pending, err := s.ListRequestsByState(ctx, vacation.EstadoPendiente)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, ok, err := s.GetSnapshot(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.False(t, ok)

	b := vacation.Balance{EmployeeID: "emp-1", Period: 2025, Vencidas: 1, Pendientes: 30, Truncas: 2, DiasLibres: 15, DiasBloque: 15, FechaCorte: day("2025-02-01")}
	require.NoError(t, s.SaveSnapshot(ctx, b))

	got, ok, err := s.GetSnapshot(ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, got)

	require.NoError(t, s.InvalidateSnapshot(ctx, "emp-1", 2025))
	_, ok, err = s.GetSnapshot(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshots_InvalidateEmployeeDropsEveryPeriod(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: two periods cached for emp-1 and one for emp-2
	for _, snap := range []vacation.Balance{
		{EmployeeID: "emp-1", Period: 2024, FechaCorte: day("2024-12-31")},
		{EmployeeID: "emp-1", Period: 2025, FechaCorte: day("2025-02-01")},
		{EmployeeID: "emp-2", Period: 2025, FechaCorte: day("2025-02-01")},
	} {
		require.NoError(t, s.SaveSnapshot(ctx, snap))
	}

	// WHEN
	require.NoError(t, s.InvalidateEmployeeSnapshots(ctx, "emp-1"))

	// THEN
	for _, period := range []int{2024, 2025} {
		_, ok, err := s.GetSnapshot(ctx, "emp-1", period)
		require.NoError(t, err)
		assert.False(t, ok, "period %d", period)
	}
	_, ok, err := s.GetSnapshot(ctx, "emp-2", 2025)
	require.NoError(t, err)
	assert.True(t, ok)
}
