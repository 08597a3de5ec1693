package generic

import "github.com/shopspring/decimal"

// =============================================================================
// PRORATION - Share of an annual entitlement
// =============================================================================

type ProrateMethod string

const (
	ProrateNone    ProrateMethod = "none"    // full annual amount from day one
	ProrateMonthly ProrateMethod = "monthly" // annual × elapsedWholeMonths / 12
)

var twelve = decimal.NewFromInt(12)

// ProrateMonths returns floor(annual × months / 12). months is clamped to
// [0, 12].
func ProrateMonths(annual Amount, months int) Amount {
	if months <= 0 {
		return annual.Zero()
	}
	if months >= 12 {
		return annual
	}
	share := annual.Value.Mul(decimal.NewFromInt(int64(months))).Div(twelve)
	return Amount{Value: share.Floor(), Unit: annual.Unit}
}

// Prorate applies method to annual for the given number of elapsed months.
func Prorate(method ProrateMethod, annual Amount, months int) Amount {
	if method == ProrateNone {
		return annual
	}
	return ProrateMonths(annual, months)
}
