package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/observability/metrics"
)

// DefaultPrepareTimeout bounds source preparation.
const DefaultPrepareTimeout = 5 * time.Second

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithPrepareTimeout replaces the preparation bound.
func WithPrepareTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBroadcaster publishes states through b.
func WithBroadcaster(b *Broadcaster) ControllerOption {
	return func(c *Controller) {
		if b != nil {
			c.broadcaster = b
		}
	}
}

// WithMetrics records preparation durations, fallbacks and the current phase.
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// Controller is the playback state machine. It is the only writer of the
// active source; callers observe it through published states.
type Controller struct {
	local       Source
	remote      Source
	timeout     time.Duration
	broadcaster *Broadcaster
	metrics     *metrics.Metrics

	// run serializes sessions: a new Realize or a Stop waits for the
	// superseded Realize to unwind before touching the sources.
	run sync.Mutex

	// mu guards the fields below. It is never held across source calls.
	mu         sync.Mutex
	pub        sync.Mutex
	generation uint64
	session    string
	cancel     context.CancelFunc
	active     Source
	state      State
}

// NewController creates a controller. local must always be able to play a
// LocalTone; remote serves StreamingTrack preferences.
func NewController(local, remote Source, opts ...ControllerOption) *Controller {
	c := &Controller{
		local:       local,
		remote:      remote,
		timeout:     DefaultPrepareTimeout,
		broadcaster: NewBroadcaster(),
		state:       Idle(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Broadcaster returns the broadcaster states are published through.
func (c *Controller) Broadcaster() *Broadcaster {
	return c.broadcaster
}

// State returns the last published state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Realize plays the preference, superseding any current session.
// It returns the final state: Playing on success, including a fallback,
// or Error with the cause. ErrStopped means Stop or a newer Realize won.
// The session outlives ctx; only Stop or the next Realize ends it.
func (c *Controller) Realize(ctx context.Context, pref domain.AudioPreference, opts PlayOptions) (State, error) {
	gen, session, sessionCtx := c.begin(ctx)

	c.run.Lock()
	defer c.run.Unlock()

	ctx = logger.WithKV(ctx, "session", session)

	c.releaseActive(ctx)

	if !c.publish(gen, session, Preparing()) {
		return c.State(), ErrStopped
	}

	primary, err := c.selectSource(pref)
	if err == nil {
		err = c.start(sessionCtx, gen, primary, pref, opts)
	}

	if err == nil {
		return c.finish(ctx, gen, session, primary, Playing(domain.Describe(pref)))
	}

	if c.superseded(gen) {
		return c.State(), ErrStopped
	}

	c.publish(gen, session, Failed(err))

	track, ok := pref.(domain.StreamingTrack)
	if !ok {
		logger.ErrorKV(ctx, "Local tone failed, nothing to fall back to", "error", err)
		c.endSession(gen)

		return c.State(), err
	}

	logger.WarnKV(ctx, "Streaming failed, falling back to local tone",
		"uri", track.URI, "fallback", track.Fallback.Name, "error", err)
	c.metrics.FallbackUsed()

	fallbackErr := c.startFallback(sessionCtx, track.Fallback, opts)
	if fallbackErr != nil {
		if c.superseded(gen) {
			return c.State(), ErrStopped
		}

		joined := errors.Join(err, fmt.Errorf("fallback: %w", fallbackErr))
		c.publish(gen, session, Failed(joined))
		c.endSession(gen)

		return c.State(), joined
	}

	playing := Playing(domain.Describe(track.Fallback))
	playing.Fallback = true

	return c.finish(ctx, gen, session, c.local, playing)
}

// Stop ends the current session from any state. It aborts an in-flight
// preparation and releases the active source. Calling it while idle does nothing.
func (c *Controller) Stop(ctx context.Context) error {
	_, err := c.stop(ctx, "")

	return err
}

// StopSession ends the session only while it is still the current one, so a
// newer session started in the meantime keeps playing. It reports whether
// the session was stopped.
func (c *Controller) StopSession(ctx context.Context, session string) (bool, error) {
	if session == "" {
		return false, nil
	}

	return c.stop(ctx, session)
}

// stop ends the current session, or only the named one when session is set.
func (c *Controller) stop(ctx context.Context, session string) (bool, error) {
	c.mu.Lock()

	if session != "" && session != c.session {
		c.mu.Unlock()

		return false, nil
	}

	c.generation++
	c.session = ""
	gen := c.generation

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.mu.Unlock()

	c.run.Lock()
	defer c.run.Unlock()

	c.mu.Lock()
	active := c.active
	c.active = nil
	idle := c.state.Phase == PhaseIdle
	c.mu.Unlock()

	var err error

	if active != nil {
		if stopErr := active.Stop(ctx); stopErr != nil {
			err = sourceError(active, "stop", stopErr)
		}
	}

	if !idle {
		c.publish(gen, "", Idle())
	}

	return true, err
}

// begin supersedes the current session and opens a new one.
func (c *Controller) begin(ctx context.Context) (uint64, string, context.Context) {
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.session = uuid.NewString()

	if c.cancel != nil {
		c.cancel()
	}

	c.cancel = cancel

	return c.generation, c.session, sessionCtx
}

// endSession releases the session context of a failed session.
func (c *Controller) endSession(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation == gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// releaseActive stops the source left playing by a superseded session.
func (c *Controller) releaseActive(ctx context.Context) {
	c.mu.Lock()
	prev := c.active
	c.active = nil
	c.mu.Unlock()

	if prev == nil {
		return
	}

	if err := prev.Stop(ctx); err != nil {
		logger.WarnKV(ctx, "Stopping previous source failed", "source", prev.Name(), "error", err)
	}
}

func (c *Controller) selectSource(pref domain.AudioPreference) (Source, error) {
	switch pref.(type) {
	case domain.LocalTone:
		return c.local, nil
	case domain.StreamingTrack:
		if c.remote == nil {
			return nil, &SourceError{Source: "stream", Op: "prepare", Err: ErrSourceUnavailable}
		}

		return c.remote, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPreference, pref)
	}
}

// start prepares src under the bound and plays it.
func (c *Controller) start(ctx context.Context, gen uint64, src Source, pref domain.AudioPreference, opts PlayOptions) error {
	if err := c.prepareBounded(ctx, src, pref); err != nil {
		return err
	}

	if c.superseded(gen) {
		c.release(ctx, src)

		return ErrStopped
	}

	if err := src.Play(ctx, opts); err != nil {
		c.release(ctx, src)

		return sourceError(src, "play", err)
	}

	return nil
}

// prepareBounded races src.Prepare against the timeout. On timeout or
// cancellation the preparation context is cancelled and the source released,
// so a late success cannot start playback.
func (c *Controller) prepareBounded(ctx context.Context, src Source, pref domain.AudioPreference) error {
	prepCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan error, 1)

	go func() {
		done <- src.Prepare(prepCtx, pref)
	}()

	var err error

	select {
	case err = <-done:
		if err == nil {
			c.metrics.ObservePrepare(src.Name(), metrics.OutcomeReady, time.Since(started))

			return nil
		}
	case <-prepCtx.Done():
	}

	cancel()
	c.release(ctx, src)

	switch {
	case ctx.Err() != nil:
		return ErrStopped
	case errors.Is(prepCtx.Err(), context.DeadlineExceeded):
		c.metrics.ObservePrepare(src.Name(), metrics.OutcomeTimeout, time.Since(started))

		return &SourceError{
			Source: src.Name(),
			Op:     "prepare",
			Err:    fmt.Errorf("%w after %s", ErrPreparationTimeout, c.timeout),
		}
	default:
		c.metrics.ObservePrepare(src.Name(), metrics.OutcomeError, time.Since(started))

		return sourceError(src, "prepare", err)
	}
}

// startFallback plays the local tone without a bound: local sources prepare synchronously.
func (c *Controller) startFallback(ctx context.Context, tone domain.LocalTone, opts PlayOptions) error {
	if err := c.local.Prepare(ctx, tone); err != nil {
		c.release(ctx, c.local)

		return sourceError(c.local, "prepare", err)
	}

	if err := c.local.Play(ctx, opts); err != nil {
		c.release(ctx, c.local)

		return sourceError(c.local, "play", err)
	}

	return nil
}

// finish records src as active and publishes the playing state,
// unless the session was superseded meanwhile.
func (c *Controller) finish(ctx context.Context, gen uint64, session string, src Source, s State) (State, error) {
	c.mu.Lock()

	if c.generation != gen {
		c.mu.Unlock()
		c.release(ctx, src)

		return c.State(), ErrStopped
	}

	c.active = src
	c.mu.Unlock()

	if !c.publish(gen, session, s) {
		return c.State(), ErrStopped
	}

	return c.State(), nil
}

func (c *Controller) release(ctx context.Context, src Source) {
	if err := src.Stop(context.WithoutCancel(ctx)); err != nil {
		logger.WarnKV(ctx, "Releasing source failed", "source", src.Name(), "error", err)
	}
}

func (c *Controller) superseded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation != gen
}

// publish stores and broadcasts s if gen is still current. The pub lock is
// taken before mu is released, so listeners observe states in the order
// they were stored.
func (c *Controller) publish(gen uint64, session string, s State) bool {
	s.Session = session
	if s.At.IsZero() {
		s.At = time.Now()
	}

	c.mu.Lock()

	if c.generation != gen {
		c.mu.Unlock()

		return false
	}

	c.state = s
	c.pub.Lock()
	c.mu.Unlock()

	defer c.pub.Unlock()

	c.metrics.SetPlaybackPhase(int(s.Phase))
	c.broadcaster.Publish(s)

	return true
}
