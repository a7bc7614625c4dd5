package alarm

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultSnoozeMinutes is the snooze length of new alarms.
	DefaultSnoozeMinutes = 9
	// DefaultVolume is the volume of new alarms.
	DefaultVolume = 1.0
)

var (
	// ErrInvalidID is returned for non-positive alarm ids.
	ErrInvalidID = errors.New("alarm id must be positive")
	// ErrMissingAudio is returned when an alarm has no audio preference.
	ErrMissingAudio = errors.New("alarm audio preference is missing")
	// ErrInvalidVolume is returned for volumes outside (0, 1].
	ErrInvalidVolume = errors.New("volume must be greater than 0 and at most 1")
	// ErrInvalidSnooze is returned for a negative snooze length.
	ErrInvalidSnooze = errors.New("snooze minutes must not be negative")
	// ErrInvalidRamp is returned for a negative volume ramp.
	ErrInvalidRamp = errors.New("volume ramp minutes must not be negative")
	// ErrInvalidRing is returned for a negative or sub-second ring duration.
	ErrInvalidRing = errors.New("ring duration must be zero or at least one second")
)

// Alarm is a user-defined wake-up rule.
type Alarm struct {
	// ID uniquely identifies the alarm.
	ID int64
	// Label is a free text title; empty means "Alarm <id>".
	Label string
	// Time is the wall-clock time the alarm fires at.
	Time TimeOfDay
	// Recurrence lists the weekdays the alarm repeats on; empty means once.
	Recurrence Recurrence
	// Timezone is an IANA zone name; empty means the device zone.
	Timezone string
	// StartDate is the earliest date the alarm may fire; zero means no limit.
	StartDate Date
	// Audio is what the alarm plays.
	Audio AudioPreference
	// SnoozeMinutes is stored for the UI; snoozing is not implemented by the core.
	SnoozeMinutes int
	// VolumeRampMinutes is how long playback takes to reach Volume; zero means no ramp.
	VolumeRampMinutes int
	// VibrationEnabled is stored for devices that can vibrate.
	VibrationEnabled bool
	// Enabled alarms are armed by the scheduler.
	Enabled bool
	// Volume is the target playback volume in (0, 1].
	Volume float64
	// RingDuration is how long the alarm sounds before it stops by itself;
	// zero means the configured default.
	RingDuration time.Duration
}

// New returns an enabled alarm with default snooze and volume.
func New(id int64, at TimeOfDay, recurrence Recurrence, audio AudioPreference) Alarm {
	return Alarm{
		ID:            id,
		Time:          at,
		Recurrence:    recurrence,
		Audio:         audio,
		SnoozeMinutes: DefaultSnoozeMinutes,
		Enabled:       true,
		Volume:        DefaultVolume,
	}
}

// Validate checks every field of the alarm.
func (a Alarm) Validate() error {
	if a.ID <= 0 {
		return ErrInvalidID
	}

	if err := a.Time.Validate(); err != nil {
		return err
	}

	if a.Audio == nil {
		return ErrMissingAudio
	}

	if err := a.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if a.Timezone != "" {
		if _, err := time.LoadLocation(a.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", a.Timezone, err)
		}
	}

	if a.Volume <= 0 || a.Volume > 1 {
		return ErrInvalidVolume
	}

	if a.SnoozeMinutes < 0 {
		return ErrInvalidSnooze
	}

	if a.VolumeRampMinutes < 0 {
		return ErrInvalidRamp
	}

	if a.RingDuration < 0 || (a.RingDuration > 0 && a.RingDuration < time.Second) {
		return ErrInvalidRing
	}

	return nil
}

// Clone returns a copy of the alarm. All fields are values, so a shallow copy
// is independent of the original.
func (a Alarm) Clone() Alarm {
	return a
}

// DisplayLabel returns the label, or "Alarm <id>" when none is set.
func (a Alarm) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}

	return fmt.Sprintf("Alarm %d", a.ID)
}

// Location resolves the alarm's timezone, falling back to def
// when the zone is unset or unknown.
func (a Alarm) Location(def *time.Location) *time.Location {
	if def == nil {
		def = time.Local
	}

	if a.Timezone == "" {
		return def
	}

	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return def
	}

	return loc
}

// VolumeRamp returns the ramp length as a duration.
func (a Alarm) VolumeRamp() time.Duration {
	return time.Duration(a.VolumeRampMinutes) * time.Minute
}
