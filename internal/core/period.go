// Package core holds the pure domain logic: the monthly budget period
// engine and the funnel derivation math. Nothing in here touches I/O.
package core

import "time"

// DefaultBreakpointDay is the day of the month a new accounting period
// begins on when nothing else is configured.
const DefaultBreakpointDay = 5

// Period describes the accounting window an instant falls into. It is
// only meaningful for the instant it was computed against and is never
// persisted.
type Period struct {
	Start         time.Time
	LengthDays    int
	RemainingDays int
}

// StartMillis returns the period start as epoch milliseconds, which is
// how spending timestamps are stored.
func (p Period) StartMillis() int64 {
	return p.Start.UnixMilli()
}

// Calculator computes budget periods for a configured breakpoint day.
// The breakpoint must be in 1..28 so that every month contains it;
// config validation enforces the range, the calculator assumes it.
type Calculator struct {
	BreakpointDay int
}

// NewCalculator returns a Calculator, falling back to
// DefaultBreakpointDay when day is zero.
func NewCalculator(day int) Calculator {
	if day == 0 {
		day = DefaultBreakpointDay
	}
	return Calculator{BreakpointDay: day}
}

// Start returns midnight UTC of the day the current period began: the
// most recent date whose day-of-month equals the breakpoint and which
// is not after now's date. The boundary day itself opens a new period.
func (c Calculator) Start(now time.Time) time.Time {
	year, month, day := now.UTC().Date()
	m := int(month)
	if day < c.BreakpointDay {
		m--
	}
	// time.Date normalizes out-of-range months (month 0 becomes
	// December of the previous year), and the day-of-month is always
	// the breakpoint, so no day-31 rollover can happen.
	return time.Date(year, time.Month(m), c.BreakpointDay, 0, 0, 0, 0, time.UTC)
}

// StartMillis is Start as epoch milliseconds.
func (c Calculator) StartMillis(now time.Time) int64 {
	return c.Start(now).UnixMilli()
}

// LengthDays returns the number of calendar days in the month the
// current period starts in.
func (c Calculator) LengthDays(now time.Time) int {
	start := c.Start(now)
	return daysInMonth(start.Year(), start.Month())
}

// RemainingDays returns the whole days between now's date and the next
// period start, excluding the boundary day itself. On the last day
// before the breakpoint it is 0; on the breakpoint day it spans the
// freshly started period.
func (c Calculator) RemainingDays(now time.Time) int {
	year, month, day := now.UTC().Date()
	m := int(month)
	if day >= c.BreakpointDay {
		m++
	}
	next := time.Date(year, time.Month(m), c.BreakpointDay, 0, 0, 0, 0, time.UTC)
	today := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return int(next.Sub(today).Hours()/24) - 1
}

// PeriodAt bundles Start, LengthDays and RemainingDays for a single
// instant so callers evaluate "now" exactly once.
func (c Calculator) PeriodAt(now time.Time) Period {
	return Period{
		Start:         c.Start(now),
		LengthDays:    c.LengthDays(now),
		RemainingDays: c.RemainingDays(now),
	}
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
