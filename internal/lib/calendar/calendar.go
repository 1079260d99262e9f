// Package calendar contains day-granular date arithmetic used by statistics
// and goal intervals. Dates are compared as calendar days in the location of
// the reference time, so DST shifts never produce 23 or 25 hour "days".
package calendar

import (
	"math"
	"time"
)

// Day returns t's calendar date as midnight UTC. The result is only meant for
// comparison and day stepping, not for display.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// DaysBetween counts calendar days from one Day value to another.
// It is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// CeilDays rounds a duration up to whole days.
func CeilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}
