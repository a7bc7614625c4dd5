package alarmrepo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

const (
	audioKindTone   = "tone"
	audioKindStream = "stream"
)

// errUnknownAudioKind is returned for records with an unsupported audio kind.
var errUnknownAudioKind = errors.New("unknown audio kind")

// alarmRecord is the storage representation of an alarm.
type alarmRecord struct {
	ID                int64       `yaml:"id"`
	Label             string      `yaml:"label,omitempty"`
	Time              string      `yaml:"time"`
	Days              string      `yaml:"days"`
	Timezone          string      `yaml:"timezone,omitempty"`
	StartDate         string      `yaml:"start_date,omitempty"`
	Audio             audioRecord `yaml:"audio"`
	SnoozeMinutes     int         `yaml:"snooze_minutes"`
	VolumeRampMinutes int         `yaml:"volume_ramp_minutes,omitempty"`
	VibrationEnabled  bool        `yaml:"vibration_enabled"`
	Enabled           bool        `yaml:"enabled"`
	Volume            float64     `yaml:"volume"`
	RingSeconds       int64       `yaml:"ring_seconds,omitempty"`
}

// audioRecord flattens the audio preference variants.
type audioRecord struct {
	Kind          string `yaml:"kind"`
	Tone          string `yaml:"tone"`
	URI           string `yaml:"uri,omitempty"`
	StartOffsetMS int64  `yaml:"start_offset_ms,omitempty"`
}

// toRecord converts the domain alarm into its storage form.
func toRecord(a domain.Alarm) alarmRecord {
	return alarmRecord{
		ID:                a.ID,
		Label:             a.Label,
		Time:              a.Time.String(),
		Days:              strings.Join(shortDays(a.Recurrence), ","),
		Timezone:          a.Timezone,
		StartDate:         a.StartDate.String(),
		Audio:             toAudioRecord(a.Audio),
		SnoozeMinutes:     a.SnoozeMinutes,
		VolumeRampMinutes: a.VolumeRampMinutes,
		VibrationEnabled:  a.VibrationEnabled,
		Enabled:           a.Enabled,
		Volume:            a.Volume,
		RingSeconds:       int64(a.RingDuration / time.Second),
	}
}

func toAudioRecord(p domain.AudioPreference) audioRecord {
	switch v := p.(type) {
	case domain.LocalTone:
		return audioRecord{Kind: audioKindTone, Tone: v.Name}
	case domain.StreamingTrack:
		return audioRecord{
			Kind:          audioKindStream,
			Tone:          v.Fallback.Name,
			URI:           v.URI,
			StartOffsetMS: v.StartOffset.Milliseconds(),
		}
	default:
		return audioRecord{}
	}
}

// fromRecord converts a storage record back into a domain alarm.
func fromRecord(r alarmRecord) (domain.Alarm, error) {
	tod, err := domain.ParseTimeOfDay(r.Time)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("alarm %d: %w", r.ID, err)
	}

	rec, err := domain.ParseRecurrence(r.Days)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("alarm %d: %w", r.ID, err)
	}

	var start domain.Date
	if r.StartDate != "" {
		if start, err = domain.ParseDate(r.StartDate); err != nil {
			return domain.Alarm{}, fmt.Errorf("alarm %d: %w", r.ID, err)
		}
	}

	audio, err := fromAudioRecord(r.Audio)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("alarm %d: %w", r.ID, err)
	}

	return domain.Alarm{
		ID:                r.ID,
		Label:             r.Label,
		Time:              tod,
		Recurrence:        rec,
		Timezone:          r.Timezone,
		StartDate:         start,
		Audio:             audio,
		SnoozeMinutes:     r.SnoozeMinutes,
		VolumeRampMinutes: r.VolumeRampMinutes,
		VibrationEnabled:  r.VibrationEnabled,
		Enabled:           r.Enabled,
		Volume:            r.Volume,
		RingDuration:      time.Duration(r.RingSeconds) * time.Second,
	}, nil
}

func fromAudioRecord(r audioRecord) (domain.AudioPreference, error) {
	tone := domain.LocalTone{Name: r.Tone}

	switch r.Kind {
	case audioKindTone, "":
		return tone, nil
	case audioKindStream:
		return domain.StreamingTrack{
			URI:         r.URI,
			Fallback:    tone,
			StartOffset: time.Duration(r.StartOffsetMS) * time.Millisecond,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAudioKind, r.Kind)
	}
}

func shortDays(r domain.Recurrence) []string {
	days := r.Days()
	names := make([]string, 0, len(days))

	for _, d := range days {
		names = append(names, domain.ShortWeekday(d))
	}

	return names
}
