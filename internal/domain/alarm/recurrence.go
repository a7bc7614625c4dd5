package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownWeekday is returned when a weekday name cannot be parsed.
var ErrUnknownWeekday = errors.New("unknown weekday")

// Recurrence is the set of weekdays an alarm repeats on.
// The empty set means the alarm fires once.
type Recurrence uint8

const (
	weekdaysMask Recurrence = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday |
		1<<time.Thursday | 1<<time.Friday
	weekendsMask Recurrence = 1<<time.Saturday | 1<<time.Sunday
	dailyMask               = weekdaysMask | weekendsMask
)

// mondayFirst is the display order of weekdays.
//
//nolint:gochecknoglobals // Read-only lookup table.
var mondayFirst = [...]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// weekdayNames maps accepted spellings to weekdays.
//
//nolint:gochecknoglobals // Read-only lookup table.
var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// Once is the one-shot recurrence.
const Once Recurrence = 0

// NewRecurrence builds a recurrence from weekdays. Duplicates collapse.
func NewRecurrence(days ...time.Weekday) Recurrence {
	var r Recurrence

	for _, d := range days {
		r |= 1 << d
	}

	return r
}

// Daily returns the recurrence containing every weekday.
func Daily() Recurrence {
	return dailyMask
}

// Contains reports whether d is part of the recurrence.
func (r Recurrence) Contains(d time.Weekday) bool {
	return r&(1<<d) != 0
}

// IsOneShot reports whether the recurrence is empty.
func (r Recurrence) IsOneShot() bool {
	return r&dailyMask == 0
}

// Days returns the weekdays of the recurrence starting from Monday.
func (r Recurrence) Days() []time.Weekday {
	days := make([]time.Weekday, 0, len(mondayFirst))

	for _, d := range mondayFirst {
		if r.Contains(d) {
			days = append(days, d)
		}
	}

	return days
}

// String renders the recurrence for humans: once, daily, weekdays,
// weekends or a comma separated list of short day names.
func (r Recurrence) String() string {
	switch r & dailyMask {
	case Once:
		return "once"
	case dailyMask:
		return "daily"
	case weekdaysMask:
		return "weekdays"
	case weekendsMask:
		return "weekends"
	}

	days := r.Days()
	names := make([]string, 0, len(days))

	for _, d := range days {
		names = append(names, ShortWeekday(d))
	}

	return strings.Join(names, ",")
}

// ShortWeekday returns the lowercase three letter name of d.
func ShortWeekday(d time.Weekday) string {
	return strings.ToLower(d.String()[:3])
}

// ParseWeekday accepts full or abbreviated English day names, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, s)
	}

	return d, nil
}

// ParseRecurrence parses a comma separated day list or one of the aliases
// once, daily, weekdays and weekends. An empty string means once.
func ParseRecurrence(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "once", "none":
		return Once, nil
	case "daily", "everyday":
		return dailyMask, nil
	case "weekdays":
		return weekdaysMask, nil
	case "weekends":
		return weekendsMask, nil
	}

	var r Recurrence

	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}

		d, err := ParseWeekday(part)
		if err != nil {
			return Once, err
		}

		r |= 1 << d
	}

	return r, nil
}
