package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction
// =============================================================================

// TimePoint is a calendar day in UTC. All entitlement arithmetic works on
// whole days; the time of day is discarded by normalize.
type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day in t's own location.
func DayOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return DayOf(t), nil
}

func Today() TimePoint { return DayOf(time.Now()) }

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, n, 0)} }
func (tp TimePoint) AddYears(n int) TimePoint  { return TimePoint{Time: tp.normalize().AddDate(n, 0, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (tp TimePoint) String() string { return tp.normalize().Format(DateLayout) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }

// DaysBetween returns the number of days from 'from' to 'to' (to - from).
func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// DaysInclusive returns the calendar length of [from, to]. Zero when to < from.
func DaysInclusive(from, to TimePoint) int {
	if to.Before(from) {
		return 0
	}
	return DaysBetween(from, to) + 1
}

// WeekendDays counts Saturdays and Sundays in [from, to].
func WeekendDays(from, to TimePoint) int {
	n := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if d.IsWeekend() {
			n++
		}
	}
	return n
}

// MonthsBetween returns the number of whole months elapsed from 'from' to
// 'to'. A month is complete when the day-of-month of 'from' is reached; for
// anchors on the 29th-31st the last day of a shorter month counts.
// Returns 0 when to < from.
func MonthsBetween(from, to TimePoint) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() && to.Day() != daysInMonth(to.Year(), to.Month()) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
