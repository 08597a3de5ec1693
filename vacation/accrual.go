/*
accrual.go - Aging buckets and period allotments

PURPOSE:
  Pure computation of what an employee is entitled to at a cutoff date.
  No I/O, no clock: the same inputs always produce the same Balance.

BUCKETS (annual = policy.AnnualEntitlement):
  months       = whole months from hire to cutoff
  serviceYears = completed anniversary years (months / 12)

  truncas      floor(annual × (months mod 12) / 12)    current partial year
  pendientes   annual if serviceYears >= 1              last completed year
  vencidas     annual × (serviceYears - 1), if >= 2     older completed years

  Vencidas are only flagged. Removing them is a business decision made
  outside the engine.

ALLOTMENTS (diasLibres / diasBloque):
  period <  hire year                      0
  serviceYears at allotment cutoff == 0    prorated like truncas
  otherwise                                full policy allotment

  The allotment cutoff is min(cutoff, Dec 31 of period).

CONSUMPTION:
  Committed days are subtracted from the historical buckets by
  ApplyConsumption, oldest first when the policy asks for it. The allotments
  are reduced by the ledger, not here.
*/
package vacation

import (
	"github.com/warp/vacation-engine/generic"
)

// AccrualCalculator binds a policy to the pure computation.
type AccrualCalculator struct {
	Policy AccrualPolicy
}

func NewAccrualCalculator(policy AccrualPolicy) *AccrualCalculator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &AccrualCalculator{Policy: policy}
}

func (c *AccrualCalculator) ComputeBalance(e Employee, period int, cutoff generic.TimePoint) Balance {
	return ComputeBalance(e, period, cutoff, c.Policy)
}

// ComputeBalance returns the gross entitlement of e for period at cutoff.
func ComputeBalance(e Employee, period int, cutoff generic.TimePoint, policy AccrualPolicy) Balance {
	b := Balance{EmployeeID: e.ID, Period: period, FechaCorte: cutoff}
	if e.HireDate.IsZero() || cutoff.Before(e.HireDate) {
		return b
	}

	annual := generic.Days(policy.AnnualEntitlement(e))
	months := generic.MonthsBetween(e.HireDate, cutoff)
	serviceYears := generic.ServiceYears(e.HireDate, cutoff)

	b.Truncas = generic.ProrateMonths(annual, months%12).WholeDays()
	if serviceYears >= 1 {
		b.Pendientes = annual.WholeDays()
	}
	if serviceYears >= 2 {
		b.Vencidas = annual.WholeDays() * (serviceYears - 1)
	}

	b.DiasLibres = AllotmentFor(e, period, cutoff, policy, KindLibres)
	b.DiasBloque = AllotmentFor(e, period, cutoff, policy, KindBloque)
	return b
}

// AllotmentFor returns the gross allotment of kind for period, before any
// ledger movement.
func AllotmentFor(e Employee, period int, cutoff generic.TimePoint, policy AccrualPolicy, kind Kind) int {
	if e.HireDate.IsZero() || period < e.HireDate.Year() {
		return 0
	}
	at := AllotmentCutoff(period, cutoff)
	if at.Before(e.HireDate) {
		return 0
	}
	full := generic.Days(policy.Allotment(e, kind))
	months := generic.MonthsBetween(e.HireDate, at)
	if months >= 12 {
		return full.WholeDays()
	}
	return generic.Prorate(policy.Proration(), full, months).WholeDays()
}

// AllotmentCutoff clamps cutoff to the last day of period.
func AllotmentCutoff(period int, cutoff generic.TimePoint) generic.TimePoint {
	end := generic.EndOfYear(period)
	if cutoff.After(end) {
		return end
	}
	return cutoff
}

// ApplyConsumption subtracts consumed days from the historical buckets. With
// oldest-first consumption the order is vencidas, pendientes, truncas;
// otherwise the newest bucket is drained first. Buckets never go below zero.
func ApplyConsumption(b Balance, consumed int, policy AccrualPolicy) Balance {
	if consumed <= 0 {
		return b
	}
	order := []*int{&b.Vencidas, &b.Pendientes, &b.Truncas}
	if !policy.ConsumeOldestFirst() {
		order = []*int{&b.Truncas, &b.Pendientes, &b.Vencidas}
	}
	for _, bucket := range order {
		take := min(consumed, *bucket)
		*bucket -= take
		consumed -= take
		if consumed == 0 {
			break
		}
	}
	return b
}
