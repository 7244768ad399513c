// Package calendar provides business-day and business-hour arithmetic over
// a Monday-Friday, 09:00-18:00 working window. All functions are pure and
// operate on wall-clock values as given; no timezone conversion is applied.
package calendar

import "time"

const (
	dayStartHour = 9
	dayEndHour   = 18
)

// AddBusinessDays steps forward one calendar day at a time, counting a step
// only when it lands on a weekday, until n such steps have occurred. The
// start day itself is never counted.
func AddBusinessDays(start time.Time, n int) time.Time {
	current := start
	for added := 0; added < n; {
		current = current.AddDate(0, 0, 1)
		if !isWeekend(current) {
			added++
		}
	}
	return current
}

// AddBusinessHours advances a wall clock one hour at a time, counting a
// step only when it lands inside the working window, until h hours have
// been counted. Landing exactly on 18:00 counts; starting at 18:00 does
// not (the first counted landing is 09:00-ish the next business day).
//
// A zero-hour request returns start verbatim, even when start is on a
// weekend or outside working hours; callers depend on this when deriving
// default due dates for tickets created off-hours, so it must not be
// normalized to the window.
func AddBusinessHours(start time.Time, h int) time.Time {
	current := start
	for remaining := h; remaining > 0; {
		current = current.Add(time.Hour)
		if inBusinessWindow(current) {
			remaining--
		}
	}
	return current
}

// IsOverdue reports whether now is strictly after the due date.
func IsOverdue(now, due time.Time) bool {
	return now.After(due)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func inBusinessWindow(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	open := atHour(t, dayStartHour)
	end := atHour(t, dayEndHour)
	return !t.Before(open) && !t.After(end)
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
