package vacation

import (
	"fmt"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// ACCRUAL POLICY - Pluggable entitlement rules
// =============================================================================

// AccrualPolicy supplies the numbers the calculator needs. Swap it to change
// how much an employee earns without touching the calculator.
type AccrualPolicy interface {
	// AnnualEntitlement is the days credited per completed service year.
	AnnualEntitlement(e Employee) int

	// Allotment is the full-year usable days of kind.
	Allotment(e Employee, kind Kind) int

	// Proration applies to truncas and to allotments in the first service year.
	Proration() generic.ProrateMethod

	// ConsumeOldestFirst drains vencidas, then pendientes, then truncas.
	ConsumeOldestFirst() bool
}

// Policy is the configurable AccrualPolicy loaded from a policy file.
type Policy struct {
	Name string

	AnnualDays        int
	ForeignAnnualDays int

	LibresDays int
	BloqueDays int

	ForeignLibresDays int
	ForeignBloqueDays int

	ProrateMethod generic.ProrateMethod
	OldestFirst   bool
}

var _ AccrualPolicy = Policy{}

// DefaultPolicy is 30 days a year split evenly between libres and bloque.
func DefaultPolicy() Policy {
	return Policy{
		Name:              "default",
		AnnualDays:        30,
		ForeignAnnualDays: 30,
		LibresDays:        15,
		BloqueDays:        15,
		ForeignLibresDays: 15,
		ForeignBloqueDays: 15,
		ProrateMethod:     generic.ProrateMonthly,
		OldestFirst:       true,
	}
}

func (p Policy) AnnualEntitlement(e Employee) int {
	if e.Foreign {
		return p.ForeignAnnualDays
	}
	return p.AnnualDays
}

func (p Policy) Allotment(e Employee, kind Kind) int {
	switch {
	case e.Foreign && kind == KindBloque:
		return p.ForeignBloqueDays
	case e.Foreign:
		return p.ForeignLibresDays
	case kind == KindBloque:
		return p.BloqueDays
	default:
		return p.LibresDays
	}
}

func (p Policy) Proration() generic.ProrateMethod {
	if p.ProrateMethod == "" {
		return generic.ProrateMonthly
	}
	return p.ProrateMethod
}

func (p Policy) ConsumeOldestFirst() bool { return p.OldestFirst }

// Validate checks that the numbers are consistent.
func (p Policy) Validate() error {
	checks := []struct {
		field string
		v     int
	}{
		{"annual_days", p.AnnualDays},
		{"foreign_annual_days", p.ForeignAnnualDays},
		{"libres_days", p.LibresDays},
		{"bloque_days", p.BloqueDays},
		{"foreign_libres_days", p.ForeignLibresDays},
		{"foreign_bloque_days", p.ForeignBloqueDays},
	}
	for _, c := range checks {
		if c.v < 0 {
			return &generic.ValidationError{Field: c.field, Reason: "must not be negative"}
		}
	}
	if p.LibresDays+p.BloqueDays > p.AnnualDays {
		return &generic.ValidationError{
			Field:  "libres_days",
			Reason: fmt.Sprintf("libres + bloque (%d) exceeds annual_days (%d)", p.LibresDays+p.BloqueDays, p.AnnualDays),
		}
	}
	if p.ForeignLibresDays+p.ForeignBloqueDays > p.ForeignAnnualDays {
		return &generic.ValidationError{
			Field: "foreign_libres_days",
			Reason: fmt.Sprintf("foreign libres + bloque (%d) exceeds foreign_annual_days (%d)",
				p.ForeignLibresDays+p.ForeignBloqueDays, p.ForeignAnnualDays),
		}
	}
	switch p.ProrateMethod {
	case "", generic.ProrateNone, generic.ProrateMonthly:
	default:
		return &generic.ValidationError{Field: "prorate", Reason: fmt.Sprintf("unknown method %q", p.ProrateMethod)}
	}
	return nil
}
