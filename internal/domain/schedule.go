package domain

import "time"

// Day is the fixed recurrence of a daily delivery.
const Day = 24 * time.Hour

// NextOccurrence returns the first instant strictly after now at which the wall
// clock in loc reads at. A target equal to now rolls over to the next day, so the
// result is always in (now, now+24h].
func NextOccurrence(now time.Time, at TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	target := at.On(now, loc)
	if !target.After(now) {
		target = target.Add(Day)
	}
	return target
}
