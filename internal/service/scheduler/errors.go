package scheduler

import (
	"errors"
	"fmt"
)

// ErrSchedulingFailure marks an alarm whose wake-up could not be registered.
var ErrSchedulingFailure = errors.New("scheduling failure")

// SchedulingError reports the alarm that could not be armed and why.
type SchedulingError struct {
	// AlarmID is the affected alarm.
	AlarmID int64
	// Err is the underlying timer or repository error.
	Err error
}

// Error implements error.
func (e *SchedulingError) Error() string {
	return fmt.Sprintf("alarm %d: %v: %v", e.AlarmID, ErrSchedulingFailure, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *SchedulingError) Unwrap() []error {
	return []error{ErrSchedulingFailure, e.Err}
}
