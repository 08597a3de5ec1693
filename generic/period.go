package generic

import "fmt"

// =============================================================================
// PERIOD - Date range and yearly allotment boundaries
// =============================================================================

// Period is an inclusive range of calendar days.
//
// Two kinds are used by the engine:
//   - Yearly period: Jan 1 - Dec 31 of the allotment year (PeriodOfYear)
//   - Anniversary year: hire date + n years, used to age historical buckets
type Period struct {
	Start TimePoint
	End   TimePoint
}

const (
	MinPeriodYear = 2020
	MaxPeriodYear = 2099
)

// PeriodOfYear returns [Jan 1, Dec 31] of year.
func PeriodOfYear(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// ValidatePeriodYear rejects allotment years outside the supported window.
func ValidatePeriodYear(year int) error {
	if year < MinPeriodYear || year > MaxPeriodYear {
		return &ValidationError{
			Field:  "periodo",
			Reason: fmt.Sprintf("must be between %d and %d", MinPeriodYear, MaxPeriodYear),
		}
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// ContainsPeriod is true when other lies entirely within p.
func (p Period) ContainsPeriod(other Period) bool {
	return p.Contains(other.Start) && p.Contains(other.End)
}

// Overlaps is true when the two ranges share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Length is the number of calendar days in the period.
func (p Period) Length() int { return DaysInclusive(p.Start, p.End) }

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// ANNIVERSARY YEARS
// =============================================================================

// ServiceYears returns the number of completed anniversary years at cutoff.
func ServiceYears(anchor, cutoff TimePoint) int {
	return MonthsBetween(anchor, cutoff) / 12
}
