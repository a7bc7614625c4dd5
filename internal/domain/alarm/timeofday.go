package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay is returned for times outside the 24h clock.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay is a local wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// NewTimeOfDay builds and validates a TimeOfDay.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	t := TimeOfDay{Hour: hour, Minute: minute, Second: second}

	return t, t.Validate()
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q, expected HH:MM or HH:MM:SS", ErrInvalidTimeOfDay, s)
	}

	values := make([]int, 3)

	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}

		values[i] = v
	}

	return NewTimeOfDay(values[0], values[1], values[2])
}

// Validate checks the fields are within a 24h clock.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("%w: %02d:%02d:%02d", ErrInvalidTimeOfDay, t.Hour, t.Minute, t.Second)
	}

	return nil
}

// String renders HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Of returns the wall-clock part of tm.
func Of(tm time.Time) TimeOfDay {
	return TimeOfDay{Hour: tm.Hour(), Minute: tm.Minute(), Second: tm.Second()}
}
