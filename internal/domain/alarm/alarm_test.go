package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	got, err := ParseTimeOfDay("07:30")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay{Hour: 7, Minute: 30}, got)

	got, err = ParseTimeOfDay("23:59:58")
	require.NoError(t, err)
	require.Equal(t, "23:59:58", got.String())

	for _, bad := range []string{"", "7", "24:00", "12:60", "aa:bb", "1:2:3:4", "12:00:60"} {
		_, err = ParseTimeOfDay(bad)
		require.ErrorIs(t, err, ErrInvalidTimeOfDay, bad)
	}
}

func TestParseRecurrence(t *testing.T) {
	t.Parallel()

	cases := map[string]Recurrence{
		"":               Once,
		"once":           Once,
		"daily":          Daily(),
		"Weekdays":       NewRecurrence(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		"weekends":       NewRecurrence(time.Saturday, time.Sunday),
		"mon,WED, fri":   NewRecurrence(time.Monday, time.Wednesday, time.Friday),
		"sunday,sun":     NewRecurrence(time.Sunday),
		"thurs,tuesday,": NewRecurrence(time.Tuesday, time.Thursday),
	}

	for in, want := range cases {
		got, err := ParseRecurrence(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseRecurrence("mon,funday")
	require.ErrorIs(t, err, ErrUnknownWeekday)
}

func TestRecurrenceString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "once", Once.String())
	require.Equal(t, "daily", Daily().String())
	require.Equal(t, "weekdays", NewRecurrence(time.Friday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday).String())
	require.Equal(t, "mon,sun", NewRecurrence(time.Sunday, time.Monday).String())
	require.Equal(t, []time.Weekday{time.Monday, time.Sunday}, NewRecurrence(time.Sunday, time.Monday).Days())
	require.True(t, Once.IsOneShot())
	require.False(t, NewRecurrence(time.Saturday).IsOneShot())
}

func TestDateArithmetic(t *testing.T) {
	t.Parallel()

	d := Date{Year: 2024, Month: time.December, Day: 31}
	require.Equal(t, Date{Year: 2025, Month: time.January, Day: 1}, d.AddDays(1))
	require.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, Date{Year: 2024, Month: time.March, Day: 1}.AddDays(-1))
	require.Equal(t, time.Tuesday, d.Weekday())
	require.True(t, d.Before(d.AddDays(1)))
	require.False(t, d.Before(d))

	parsed, err := ParseDate("2025-03-09")
	require.NoError(t, err)
	require.Equal(t, "2025-03-09", parsed.String())
	require.Empty(t, Date{}.String())

	_, err = ParseDate("09/03/2025")
	require.Error(t, err)
}

func TestStreamingTrackValidation(t *testing.T) {
	t.Parallel()

	fallback := LocalTone{Name: "chime"}

	_, err := NewStreamingTrack("spotify:track:abc", fallback, 0)
	require.NoError(t, err)

	_, err = NewStreamingTrack("not a uri", fallback, 0)
	require.ErrorIs(t, err, ErrInvalidTrackURI)

	_, err = NewStreamingTrack("spotify:track:abc", fallback, -time.Second)
	require.ErrorIs(t, err, ErrNegativeOffset)

	_, err = NewStreamingTrack("spotify:track:abc", LocalTone{}, 0)
	require.ErrorIs(t, err, ErrEmptyToneName)

	require.Equal(t, "Tone: chime", Describe(fallback))
	require.Equal(t, "Stream: spotify:track:abc", Describe(StreamingTrack{URI: "spotify:track:abc"}))
}

func TestAlarmValidate(t *testing.T) {
	t.Parallel()

	a := New(1, TimeOfDay{Hour: 6}, Daily(), LocalTone{Name: "default"})
	require.NoError(t, a.Validate())
	require.Equal(t, "Alarm 1", a.DisplayLabel())
	require.Equal(t, DefaultSnoozeMinutes, a.SnoozeMinutes)

	bad := a
	bad.ID = 0
	require.ErrorIs(t, bad.Validate(), ErrInvalidID)

	bad = a
	bad.Audio = nil
	require.ErrorIs(t, bad.Validate(), ErrMissingAudio)

	for _, volume := range []float64{1.5, 0, -0.5} {
		bad = a
		bad.Volume = volume
		require.ErrorIs(t, bad.Validate(), ErrInvalidVolume, volume)
	}

	for _, ring := range []time.Duration{-time.Second, 500 * time.Millisecond} {
		bad = a
		bad.RingDuration = ring
		require.ErrorIs(t, bad.Validate(), ErrInvalidRing, ring)
	}

	ringing := a
	ringing.RingDuration = 2 * time.Minute
	require.NoError(t, ringing.Validate())

	bad = a
	bad.Timezone = "Mars/Olympus"
	require.Error(t, bad.Validate())
	require.Equal(t, time.UTC, bad.Location(time.UTC))

	a.Timezone = "Europe/Berlin"
	require.Equal(t, "Europe/Berlin", a.Location(time.UTC).String())

	clone := a.Clone()
	clone.Label = "changed"
	require.Empty(t, a.Label)
}
