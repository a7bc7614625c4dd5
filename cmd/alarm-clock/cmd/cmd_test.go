package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/service/client"
)

func TestPrintListing(t *testing.T) {
	t.Parallel()

	armed := domain.New(1, domain.TimeOfDay{Hour: 6, Minute: 30}, domain.Daily(), domain.LocalTone{Name: "chime"})
	armed.Label = "Work"

	failed := domain.New(2, domain.TimeOfDay{Hour: 9}, domain.Once, domain.StreamingTrack{URI: "spotify:track:1"})

	listing := client.Listing{
		DaemonRunning: true,
		Playback:      api.PlaybackStatus{State: "idle"},
		Entries: []client.Entry{
			{Alarm: armed, Armed: true, NextTrigger: time.Date(2026, time.March, 3, 6, 30, 0, 0, time.UTC)},
			{Alarm: failed, Warning: "timer closed"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printListing(&buf, listing, time.UTC))

	out := buf.String()
	require.Contains(t, out, "Work")
	require.Contains(t, out, "06:30:00")
	require.Contains(t, out, "daily")
	require.Contains(t, out, "Tone: chime")
	require.Contains(t, out, "Tue 2026-03-03 06:30:00 UTC")
	require.Contains(t, out, "armed")
	require.Contains(t, out, "Alarm 2")
	require.Contains(t, out, "Stream: spotify:track:1")
	require.Contains(t, out, "not armed: timer closed")
	require.Contains(t, out, "Daemon: running, playback idle")
}

func TestPrintListing_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printListing(&buf, client.Listing{}, time.UTC))
	require.Equal(t, "No alarms.\nDaemon: not running\n", buf.String())
}

func TestAddFlags_Request(t *testing.T) {
	settings = config.Default()

	f := addFlags{
		label:     "Run",
		repeat:    "mon,wed",
		stream:    "spotify:track:9",
		offset:    15 * time.Second,
		startDate: "2026-04-01",
		volume:    0.5,
		ring:      2 * time.Minute,
		ramp:      3,
	}

	req, err := f.request("05:45")
	require.NoError(t, err)
	require.Equal(t, domain.TimeOfDay{Hour: 5, Minute: 45}, req.Time)
	require.Equal(t, domain.NewRecurrence(time.Monday, time.Wednesday), req.Recurrence)
	require.Equal(t, domain.Date{Year: 2026, Month: time.April, Day: 1}, req.StartDate)
	require.Equal(t, domain.StreamingTrack{
		URI:         "spotify:track:9",
		Fallback:    domain.LocalTone{Name: config.DefaultToneName},
		StartOffset: 15 * time.Second,
	}, req.Audio)
	require.NotNil(t, req.Volume)
	require.InDelta(t, 0.5, *req.Volume, 1e-9)
	require.Equal(t, 2*time.Minute, req.RingDuration)

	// A zero volume reaches validation instead of becoming the default.
	zero, err := (&addFlags{}).request("07:00")
	require.NoError(t, err)
	require.NotNil(t, zero.Volume)
	require.Zero(t, *zero.Volume)

	_, err = (&addFlags{}).request("25:00")
	require.Error(t, err)

	_, err = (&addFlags{repeat: "someday"}).request("07:00")
	require.Error(t, err)
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("12")
	require.NoError(t, err)
	require.EqualValues(t, 12, id)

	for _, bad := range []string{"0", "-3", "x"} {
		_, err = parseID(bad)
		require.Error(t, err, bad)
	}
}
