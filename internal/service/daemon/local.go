package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/playback"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
)

// LocalOptions controls an in-process trigger.
type LocalOptions struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// AlarmID is the alarm to play.
	AlarmID int64
	// Duration is how long to play before stopping; zero means the alarm's
	// ring duration.
	Duration time.Duration
	// Output overrides the playback output from the settings.
	Output string

	// output replaces the configured output in tests.
	output audio.Output
}

// PlayOnce plays an alarm in this process for the duration, without a
// running daemon. The store is not modified.
func PlayOnce(ctx context.Context, opts *LocalOptions) error {
	ctx = logger.WithKV(logger.WithName(ctx, "local"), "alarm_id", opts.AlarmID)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.Output != "" {
		cfg.Playback.Output = opts.Output
	}

	repo, err := alarmrepo.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open alarm store: %w", err)
	}

	defer func() {
		_ = repo.Close()
	}()

	alarm, err := repo.Get(ctx, opts.AlarmID)
	if err != nil {
		return err
	}

	output := opts.output
	if output == nil {
		if output, err = newOutput(cfg.Playback.Output, os.Stderr); err != nil {
			return err
		}
	}

	local, remote := newSources(cfg, output)
	controller := playback.NewController(local, remote, playback.WithPrepareTimeout(cfg.Playback.PrepareTimeout))
	controller.Broadcaster().Subscribe(playback.LogListener(ctx))

	state, err := controller.Realize(ctx, alarm.Audio, playback.PlayOptions{
		Volume: alarm.Volume,
		Ramp:   alarm.VolumeRamp(),
	})
	if err != nil {
		return fmt.Errorf("play %s: %w", alarm.DisplayLabel(), err)
	}

	logger.InfoKV(ctx, "Playing", "what", state.Description, "fallback", state.Fallback)

	duration := opts.Duration
	if duration <= 0 {
		duration = alarm.RingDuration
	}

	if duration <= 0 {
		duration = cfg.Playback.RingDuration
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	if err = controller.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stop playback: %w", err)
	}

	return nil
}
