package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/service/client"
)

// addFlags holds the options of the add command.
type addFlags struct {
	label     string
	repeat    string
	tone      string
	stream    string
	fallback  string
	offset    time.Duration
	timezone  string
	startDate string
	volume    float64
	ring      time.Duration
	ramp      int
	snooze    int
	vibrate   bool
	disabled  bool
}

var (
	// add holds the parsed add flags.
	add addFlags

	// addCmd creates a new alarm.
	addCmd = &cobra.Command{
		Use:   "add HH:MM[:SS]",
		Short: "Add an alarm.",
		Long: `Adds an alarm ringing at the given wall-clock time.

Without --repeat the alarm rings once, at the next occurrence of the time, and
is disabled afterwards. --repeat accepts daily, weekdays, weekends or a comma
separated list of days such as mon,wed,fri.
The alarm stops by itself after --duration, or after playback.ring_duration
from the settings when no duration is given.
With --stream the alarm plays a track from the streaming provider and falls
back to the --fallback tone when the provider is unavailable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := add.request(args[0])
			if err != nil {
				return err
			}

			return withManager(func(ctx context.Context, m *client.Manager) error {
				a, addErr := m.Add(ctx, req)
				if addErr != nil {
					return addErr
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added alarm %d: %s at %s (%s)\n",
					a.ID, a.DisplayLabel(), a.Time, a.Recurrence)

				return nil
			})
		},
	}
)

// request validates the flags and builds the add request.
func (f *addFlags) request(at string) (client.AddRequest, error) {
	tod, err := domain.ParseTimeOfDay(at)
	if err != nil {
		return client.AddRequest{}, err
	}

	rec, err := domain.ParseRecurrence(f.repeat)
	if err != nil {
		return client.AddRequest{}, err
	}

	toneName := f.tone
	if toneName == "" {
		toneName = settings.Playback.DefaultTone
	}

	var audio domain.AudioPreference = domain.LocalTone{Name: toneName}

	if f.stream != "" {
		fallback := f.fallback
		if fallback == "" {
			fallback = toneName
		}

		audio = domain.StreamingTrack{
			URI:         f.stream,
			Fallback:    domain.LocalTone{Name: fallback},
			StartOffset: f.offset,
		}
	}

	var start domain.Date

	if f.startDate != "" {
		if start, err = domain.ParseDate(f.startDate); err != nil {
			return client.AddRequest{}, err
		}
	}

	volume := f.volume

	return client.AddRequest{
		Label:             f.label,
		Time:              tod,
		Recurrence:        rec,
		Timezone:          f.timezone,
		StartDate:         start,
		Audio:             audio,
		VolumeRampMinutes: f.ramp,
		SnoozeMinutes:     f.snooze,
		VibrationEnabled:  f.vibrate,
		Disabled:          f.disabled,
		Volume:            &volume,
		RingDuration:      f.ring,
	}, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := addCmd.Flags()
	flags.StringVarP(&add.label, "label", "l", "", "alarm title (default \"Alarm <id>\")")
	flags.StringVarP(&add.repeat, "repeat", "r", "", "days to repeat on: daily, weekdays, weekends or mon,tue,...")
	flags.StringVarP(&add.tone, "tone", "t", "", "local tone name (default from configuration)")
	flags.StringVar(&add.stream, "stream", "", "streaming track URI to play instead of a tone")
	flags.StringVar(&add.fallback, "fallback", "", "tone played when the stream fails (default the --tone value)")
	flags.DurationVar(&add.offset, "offset", 0, "position to start the streaming track at")
	flags.StringVar(&add.timezone, "timezone", "", "IANA timezone of the alarm time (default from configuration)")
	flags.StringVar(&add.startDate, "start-date", "", "first date the alarm may ring, YYYY-MM-DD")
	flags.Float64Var(&add.volume, "volume", domain.DefaultVolume, "playback volume, greater than 0 and at most 1")
	flags.DurationVarP(&add.ring, "duration", "d", 0, "how long the alarm rings before it stops (default from configuration)")
	flags.IntVar(&add.ramp, "ramp", 0, "minutes to raise the volume from silence")
	flags.IntVar(&add.snooze, "snooze", domain.DefaultSnoozeMinutes, "snooze length in minutes")
	flags.BoolVar(&add.vibrate, "vibrate", false, "vibrate on devices that can")
	flags.BoolVar(&add.disabled, "disabled", false, "store the alarm without arming it")
}
