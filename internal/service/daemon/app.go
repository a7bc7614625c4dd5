package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/alerting"
	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/observability/metrics"
	"github.com/oshokin/alarm-clock/internal/playback"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
	"github.com/oshokin/alarm-clock/internal/service/scheduler"
	"github.com/oshokin/alarm-clock/internal/source/stream"
	"github.com/oshokin/alarm-clock/internal/source/tone"
	"github.com/oshokin/alarm-clock/internal/waketimer"
)

// stopTimeout bounds how long shutdown waits for playback to stop.
const stopTimeout = 5 * time.Second

// deps are the collaborators of an app that Run builds from the settings.
type deps struct {
	repo      alarmrepo.Repository
	output    audio.Output
	registry  prometheus.Registerer
	escalator alerting.Escalator
	listeners []playback.Listener
}

// app connects the scheduler, the controller and the control service.
type app struct {
	repo       alarmrepo.Repository
	timer      *waketimer.Timer
	scheduler  *scheduler.Scheduler
	controller *playback.Controller
	metrics    *metrics.Metrics
	ring       time.Duration

	// mu guards closing and rings; wg tracks playback goroutines started by Dispatch.
	mu      sync.Mutex
	closing bool
	rings   map[string]*time.Timer
	wg      sync.WaitGroup
}

var (
	_ api.Service          = (*app)(nil)
	_ scheduler.Dispatcher = (*app)(nil)
)

// newApp builds the daemon core. The timer runs until close.
func newApp(ctx context.Context, cfg *config.Config, d deps) (*app, error) {
	a := &app{
		repo:  d.repo,
		ring:  cfg.Playback.RingDuration,
		rings: make(map[string]*time.Timer),
	}

	if d.registry != nil {
		m, err := metrics.New(d.registry)
		if err != nil {
			return nil, err
		}

		a.metrics = m
	}

	local, remote := newSources(cfg, d.output)

	a.controller = playback.NewController(local, remote,
		playback.WithPrepareTimeout(cfg.Playback.PrepareTimeout),
		playback.WithMetrics(a.metrics),
	)

	for _, l := range d.listeners {
		a.controller.Broadcaster().Subscribe(l)
	}

	a.timer = waketimer.New(ctx, func(alarmID int64, handle waketimer.Handle) {
		a.scheduler.HandleFire(ctx, alarmID, handle)
	})

	opts := []scheduler.Option{
		scheduler.WithLocation(cfg.Location()),
		scheduler.WithDispatcher(a),
		scheduler.WithMetrics(a.metrics),
		scheduler.WithRetryMaxElapsed(cfg.Scheduler.RetryMaxElapsed),
	}

	if d.escalator != nil {
		opts = append(opts, scheduler.WithEscalator(d.escalator))
	}

	a.scheduler = scheduler.New(d.repo, a.timer, opts...)

	return a, nil
}

// newSources builds the local tone source and, when a provider is
// configured, the streaming source.
func newSources(cfg *config.Config, output audio.Output) (playback.Source, playback.Source) {
	local := tone.NewSource(tone.NewLibrary(cfg.Playback.SoundsDir), output)

	if cfg.Stream.Endpoint == "" {
		return local, nil
	}

	client := stream.NewClient(cfg.Stream, &http.Client{Timeout: cfg.Playback.PrepareTimeout * 2})

	return local, stream.NewSource(client)
}

// start arms every enabled alarm in the store.
func (a *app) start(ctx context.Context) error {
	alarms, err := a.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load alarms: %w", err)
	}

	if err = a.scheduler.ScheduleAll(ctx, alarms); err != nil {
		logger.ErrorKV(ctx, "Some alarms could not be armed", "error", err)
	}

	logger.InfoKV(ctx, "Alarms loaded", "total", len(alarms), "armed", len(a.scheduler.Registrations()))

	return nil
}

// Dispatch implements scheduler.Dispatcher. Playback runs in its own
// goroutine; a new fire supersedes the session that is playing.
func (a *app) Dispatch(ctx context.Context, alarm domain.Alarm) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		logger.WarnKV(ctx, "Alarm fired during shutdown, not playing", "alarm_id", alarm.ID)

		return
	}

	a.wg.Add(1)
	a.mu.Unlock()

	manual := scheduler.IsManualTrigger(ctx)
	ctx = logger.WithKV(context.WithoutCancel(ctx), "alarm_id", alarm.ID)

	go func() {
		defer a.wg.Done()

		if alarm.Recurrence.IsOneShot() && !manual {
			a.disableOneShot(ctx, alarm.ID)
		}

		opts := playback.PlayOptions{Volume: alarm.Volume, Ramp: alarm.VolumeRamp()}

		state, err := a.controller.Realize(ctx, alarm.Audio, opts)

		switch {
		case errors.Is(err, playback.ErrStopped):
			logger.DebugKV(ctx, "Alarm playback superseded")
		case err != nil:
			logger.ErrorKV(ctx, "Alarm could not play", "error", err)
		default:
			ring := a.ringDuration(alarm)
			logger.InfoKV(ctx, "Alarm sounding",
				"what", state.Description, "fallback", state.Fallback, "ring", ring)
			a.endRingAfter(ctx, state.Session, ring)
		}
	}()
}

// ringDuration returns how long the alarm sounds.
func (a *app) ringDuration(alarm domain.Alarm) time.Duration {
	if alarm.RingDuration > 0 {
		return alarm.RingDuration
	}

	if a.ring > 0 {
		return a.ring
	}

	return config.DefaultRingDuration
}

// endRingAfter stops the session once it has sounded for d. A newer session
// is left alone.
func (a *app) endRingAfter(ctx context.Context, session string, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closing {
		return
	}

	a.rings[session] = time.AfterFunc(d, func() {
		a.mu.Lock()
		delete(a.rings, session)
		a.mu.Unlock()

		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		defer cancel()

		stopped, err := a.controller.StopSession(stopCtx, session)

		switch {
		case err != nil:
			logger.WarnKV(ctx, "Unable to end the alarm", "error", err)
		case stopped:
			logger.InfoKV(ctx, "Alarm rang out", "after", d)
		}
	})
}

// disableOneShot turns a fired one-shot alarm off in the store.
func (a *app) disableOneShot(ctx context.Context, id int64) {
	stored, err := a.repo.Get(ctx, id)
	if err != nil {
		logger.WarnKV(ctx, "Unable to load fired one-shot alarm", "error", err)

		return
	}

	if !stored.Enabled {
		return
	}

	stored.Enabled = false

	if err = a.repo.Upsert(ctx, stored); err != nil {
		logger.ErrorKV(ctx, "Unable to disable fired one-shot alarm", "error", err)

		return
	}

	logger.Info(ctx, "One-shot alarm disabled after firing")
}

// Reschedule implements api.Service.
func (a *app) Reschedule(ctx context.Context, alarmID int64) (time.Time, error) {
	alarm, err := a.repo.Get(ctx, alarmID)

	switch {
	case errors.Is(err, alarmrepo.ErrNotFound), err == nil && !alarm.Enabled:
		return time.Time{}, a.scheduler.Cancel(ctx, alarmID)
	case err != nil:
		return time.Time{}, err
	}

	return a.scheduler.Schedule(ctx, alarm)
}

// Cancel implements api.Service.
func (a *app) Cancel(ctx context.Context, alarmID int64) error {
	return a.scheduler.Cancel(ctx, alarmID)
}

// Trigger implements api.Service with the same semantics as a timer fire.
func (a *app) Trigger(ctx context.Context, alarmID int64) error {
	if _, err := a.repo.Get(ctx, alarmID); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Manual trigger requested", "alarm_id", alarmID)

	return a.scheduler.OnFired(scheduler.WithManualTrigger(ctx), alarmID)
}

// StopPlayback implements api.Service.
func (a *app) StopPlayback(ctx context.Context) error {
	return a.controller.Stop(ctx)
}

// Status implements api.Service.
func (a *app) Status(context.Context) api.Status {
	state := a.controller.State()

	st := api.Status{
		Playback: api.PlaybackStatus{
			State:       state.Phase.String(),
			Description: state.Description,
			Cause:       state.CauseString(),
			Session:     state.Session,
			Fallback:    state.Fallback,
		},
	}

	for _, r := range a.scheduler.Registrations() {
		st.Armed = append(st.Armed, api.ArmedAlarm{AlarmID: r.AlarmID, At: r.At})
	}

	for _, w := range a.scheduler.Warnings() {
		st.Warnings = append(st.Warnings, api.AlarmWarning{AlarmID: w.AlarmID, Error: w.Err, At: w.At})
	}

	return st
}

// close stops playback, waits for playback goroutines and stops the timer.
func (a *app) close(ctx context.Context) error {
	a.mu.Lock()
	a.closing = true

	for session, timer := range a.rings {
		timer.Stop()
		delete(a.rings, session)
	}

	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	stopErr := a.controller.Stop(ctx)

	a.wg.Wait()

	// A dispatch that was already past the closing check may have started
	// playing after the first stop.
	if a.controller.State().Phase != playback.PhaseIdle {
		stopErr = errors.Join(stopErr, a.controller.Stop(ctx))
	}

	return errors.Join(stopErr, a.timer.Close())
}
