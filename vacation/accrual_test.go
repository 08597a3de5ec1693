package vacation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// ACCRUAL CALCULATOR
// =============================================================================

func TestComputeBalance_CutoffBeforeHire_AllZero(t *testing.T) {
	e := vacation.Employee{ID: "e", HireDate: date("2024-06-01")}
	b := vacation.ComputeBalance(e, 2024, date("2024-05-31"), vacation.DefaultPolicy())

	assert.Zero(t, b.Vencidas)
	assert.Zero(t, b.Pendientes)
	assert.Zero(t, b.Truncas)
	assert.Zero(t, b.DiasLibres)
	assert.Zero(t, b.DiasBloque)
	assert.Equal(t, "2024-05-31", b.FechaCorte.String())
}

func TestComputeBalance_Hire2022Cutoff2024_VencidasClearOnlyAfterConsumption(t *testing.T) {
	// GIVEN: hired 2022-01-15, cutoff 2024-06-01 (28 whole months)
	// WHEN: computing the 2024 balance
	// THEN: serviceYears = 2, pendientes = one year, truncas = 4 months prorated.
	// The gross computation keeps the first service year in vencidas; it
	// drops to 0 only once those 30 days are consumed.
	e := vacation.Employee{ID: "e", HireDate: date("2022-01-15")}
	policy := vacation.DefaultPolicy()

	gross := vacation.ComputeBalance(e, 2024, date("2024-06-01"), policy)

	assert.Equal(t, 30, gross.Pendientes)
	assert.Equal(t, 10, gross.Truncas) // floor(30 × 4 / 12)
	assert.Equal(t, 30, gross.Vencidas, "first service year is still unconsumed")
	assert.Equal(t, 15, gross.DiasLibres)
	assert.Equal(t, 15, gross.DiasBloque)

	// The first year was taken in full, so nothing is at risk.
	b := vacation.ApplyConsumption(gross, 30, policy)
	assert.Equal(t, 0, b.Vencidas)
	assert.Equal(t, 30, b.Pendientes)
	assert.Equal(t, 10, b.Truncas)
	assert.Equal(t, 40, b.TotalHistorico())
	assert.Equal(t, 30, b.TotalDias())
}

func TestComputeBalance_FirstServiceYear_ProratesAllotments(t *testing.T) {
	// 7 whole months into the first year: floor(15 × 7 / 12) = 8
	e := vacation.Employee{ID: "e", HireDate: date("2024-03-10")}
	b := vacation.ComputeBalance(e, 2024, date("2024-10-10"), vacation.DefaultPolicy())

	assert.Equal(t, 0, b.Pendientes)
	assert.Equal(t, 17, b.Truncas) // floor(30 × 7 / 12)
	assert.Equal(t, 8, b.DiasLibres)
	assert.Equal(t, 8, b.DiasBloque)
}

func TestComputeBalance_PeriodBeforeHireYear_NoAllotment(t *testing.T) {
	e := vacation.Employee{ID: "e", HireDate: date("2022-01-15")}
	b := vacation.ComputeBalance(e, 2021, date("2024-06-01"), vacation.DefaultPolicy())

	assert.Zero(t, b.DiasLibres)
	assert.Zero(t, b.DiasBloque)
	assert.Equal(t, 30, b.Pendientes, "aging buckets do not depend on the period")
}

func TestComputeBalance_PastPeriodUsesDecember31(t *testing.T) {
	// Hired mid 2022: at Dec 31 2022 only 6 whole months had elapsed.
	e := vacation.Employee{ID: "e", HireDate: date("2022-06-15")}
	b := vacation.ComputeBalance(e, 2022, date("2024-06-01"), vacation.DefaultPolicy())

	assert.Equal(t, 7, b.DiasLibres) // floor(15 × 6 / 12)
}

func TestComputeBalance_ForeignEntitlement(t *testing.T) {
	p := vacation.DefaultPolicy()
	p.ForeignAnnualDays, p.ForeignLibresDays, p.ForeignBloqueDays = 24, 12, 12

	local := vacation.Employee{ID: "l", HireDate: date("2020-01-01")}
	foreign := vacation.Employee{ID: "f", HireDate: date("2020-01-01"), Foreign: true}

	lb := vacation.ComputeBalance(local, 2024, date("2024-07-01"), p)
	fb := vacation.ComputeBalance(foreign, 2024, date("2024-07-01"), p)

	assert.Equal(t, 30, lb.Pendientes)
	assert.Equal(t, 24, fb.Pendientes)
	assert.Equal(t, 12, fb.DiasLibres)
	assert.Equal(t, 12, fb.Truncas) // floor(24 × 6 / 12)
}

func TestComputeBalance_Deterministic(t *testing.T) {
	e := vacation.Employee{ID: "e", HireDate: date("2019-09-30")}
	calc := vacation.NewAccrualCalculator(vacation.DefaultPolicy())

	first := calc.ComputeBalance(e, 2024, date("2024-02-29"))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, calc.ComputeBalance(e, 2024, date("2024-02-29")))
	}
}

func TestComputeBalance_BucketsNeverNegative(t *testing.T) {
	e := vacation.Employee{ID: "e", HireDate: date("2020-05-20")}
	policy := vacation.DefaultPolicy()
	for _, cutoff := range []string{"2020-05-19", "2020-05-20", "2021-05-19", "2021-05-20", "2023-12-31", "2025-01-01"} {
		b := vacation.ApplyConsumption(vacation.ComputeBalance(e, 2023, date(cutoff), policy), 500, policy)
		assert.GreaterOrEqual(t, b.Vencidas, 0, cutoff)
		assert.GreaterOrEqual(t, b.Pendientes, 0, cutoff)
		assert.GreaterOrEqual(t, b.Truncas, 0, cutoff)
	}
}

func TestApplyConsumption_Order(t *testing.T) {
	b := vacation.Balance{Vencidas: 5, Pendientes: 30, Truncas: 10}

	oldest := vacation.ApplyConsumption(b, 8, vacation.DefaultPolicy())
	assert.Equal(t, 0, oldest.Vencidas)
	assert.Equal(t, 27, oldest.Pendientes)
	assert.Equal(t, 10, oldest.Truncas)

	p := vacation.DefaultPolicy()
	p.OldestFirst = false
	newest := vacation.ApplyConsumption(b, 12, p)
	assert.Equal(t, 0, newest.Truncas)
	assert.Equal(t, 28, newest.Pendientes)
	assert.Equal(t, 5, newest.Vencidas)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, vacation.DefaultPolicy().Validate())

	p := vacation.DefaultPolicy()
	p.LibresDays = 20
	assert.Error(t, p.Validate())

	p = vacation.DefaultPolicy()
	p.BloqueDays = -1
	assert.Error(t, p.Validate())
}
