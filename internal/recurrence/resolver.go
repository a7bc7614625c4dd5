// Package recurrence computes the next trigger instant of an alarm.
package recurrence

import (
	"time"

	"github.com/oshokin/alarm-clock/internal/domain/alarm"
)

const daysPerWeek = 7

// NextTrigger returns the earliest instant strictly after now at which the
// alarm is due. The wall-clock time is combined with each candidate date in
// now's location, so DST shifts are resolved per date rather than by adding
// fixed offsets.
//
// One-shot alarms fire at today's time when it is still ahead, tomorrow's
// otherwise. Recurring alarms fire on the nearest configured weekday.
// A StartDate later than today moves the first candidate date forward.
func NextTrigger(a alarm.Alarm, now time.Time) time.Time {
	loc := now.Location()

	start := alarm.DateOf(now)
	if !a.StartDate.IsZero() && start.Before(a.StartDate) {
		start = a.StartDate
	}

	if a.Recurrence.IsOneShot() {
		return firstAfter(start, a.Time, loc, now, 1)
	}

	var next time.Time

	for _, day := range a.Recurrence.Days() {
		offset := (int(day) - int(start.Weekday()) + daysPerWeek) % daysPerWeek
		candidate := firstAfter(start.AddDays(offset), a.Time, loc, now, daysPerWeek)

		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}

	return next
}

// NextTriggerIn resolves the alarm in its own timezone, falling back to def.
func NextTriggerIn(a alarm.Alarm, now time.Time, def *time.Location) time.Time {
	return NextTrigger(a, now.In(a.Location(def)))
}

// firstAfter combines date with the wall-clock time and advances by step days
// until the instant is strictly after now.
func firstAfter(date alarm.Date, at alarm.TimeOfDay, loc *time.Location, now time.Time, step int) time.Time {
	candidate := date.At(at, loc)

	for !candidate.After(now) {
		date = date.AddDays(step)
		candidate = date.At(at, loc)
	}

	return candidate
}
