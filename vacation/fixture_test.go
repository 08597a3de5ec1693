package vacation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/store/sqlite"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================
//
// Org chart used throughout:
//
//	ceo
//	 └── jefe-1
//	      ├── emp-1
//	      └── emp-2
//	outsider (root, unrelated)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *sqlite.Store
	now      time.Time
	deps     vacation.Deps
	manager  *vacation.RequestLifecycleManager
	balances *vacation.BalanceService
	dir      *vacation.Directory
}

func date(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// fivePolicy leaves exactly 5 libres days per period.
func fivePolicy() vacation.Policy {
	p := vacation.DefaultPolicy()
	p.LibresDays, p.BloqueDays = 5, 25
	p.ForeignLibresDays, p.ForeignBloqueDays = 5, 25
	return p
}

func newFixture(t *testing.T, policy vacation.Policy) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		now:   time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC),
	}
	f.deps = vacation.Deps{
		Store:  store,
		Policy: policy,
		Locker: generic.NewKeyedMutex(),
		Clock:  func() time.Time { return f.now },
		Logger: zaptest.NewLogger(t),
	}
	f.manager = vacation.NewRequestLifecycleManager(f.deps)
	f.balances = vacation.NewBalanceService(f.deps)
	f.dir = vacation.NewDirectory(f.deps)

	f.employee("ceo", "2010-01-01", "")
	f.employee("jefe-1", "2015-01-01", "ceo")
	f.employee("emp-1", "2020-01-01", "jefe-1")
	f.employee("emp-2", "2021-06-01", "jefe-1")
	f.employee("outsider", "2018-01-01", "")
	return f
}

func (f *fixture) employee(id, hired, jefe string) vacation.Employee {
	f.t.Helper()
	e := vacation.Employee{
		ID:       generic.EntityID(id),
		Name:     "Nombre " + id,
		Email:    id + "@empresa.test",
		HireDate: date(hired),
		JefeID:   generic.EntityID(jefe),
	}
	require.NoError(f.t, f.store.SaveEmployee(f.ctx, e))
	return e
}

func (f *fixture) at(day string) {
	f.now = date(day).Time.Add(9 * time.Hour)
}

func user(id string) vacation.Actor {
	return vacation.Actor{ID: generic.EntityID(id), Active: true}
}

func admin(id string) vacation.Actor {
	return vacation.Actor{ID: generic.EntityID(id), Active: true, Roles: []string{vacation.RoleAdmin}}
}

func libres(emp string, days int, from, to string) vacation.SubmitInput {
	return vacation.SubmitInput{
		RequesterID: generic.EntityID(emp),
		Kind:        vacation.KindLibres,
		Days:        days,
		Start:       date(from),
		End:         date(to),
		Period:      date(from).Year(),
	}
}

func (f *fixture) submit(in vacation.SubmitInput) vacation.VacationRequest {
	f.t.Helper()
	r, err := f.manager.Submit(f.ctx, in)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) available(emp string, period int, kind vacation.Kind) int {
	f.t.Helper()
	n, err := f.manager.Ledger().Available(f.ctx, generic.EntityID(emp), period, kind)
	require.NoError(f.t, err)
	return n
}
