package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/audio"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/playback"
)

const (
	// SourceName identifies the streaming source.
	SourceName = "stream"

	releaseTimeout = 5 * time.Second
	minRampStep    = time.Second
	rampSteps      = 20
)

// Source plays streaming tracks through the provider.
type Source struct {
	playback.StateTracker

	client *Client

	mu       sync.Mutex
	session  string
	track    domain.StreamingTrack
	stopRamp chan struct{}
	rampDone chan struct{}
}

// NewSource creates a streaming source.
func NewSource(client *Client) *Source {
	s := &Source{client: client}
	s.SetState(playback.Idle())

	return s
}

// Name implements playback.Source.
func (s *Source) Name() string { return SourceName }

// Prepare implements playback.Source. It opens a provider session and
// returns when ctx ends, releasing a session that arrives too late.
func (s *Source) Prepare(ctx context.Context, pref domain.AudioPreference) error {
	track, ok := pref.(domain.StreamingTrack)
	if !ok {
		return fmt.Errorf("%w: %T", playback.ErrUnsupportedPreference, pref)
	}

	s.SetState(playback.Preparing())

	session, err := s.client.Connect(ctx, track.URI)
	if err != nil {
		s.SetState(playback.Failed(err))

		return err
	}

	// A Stop racing with Connect either sees the stored session or finds ctx
	// already canceled here.
	s.mu.Lock()
	if err = ctx.Err(); err != nil {
		s.mu.Unlock()
		s.release(ctx, session)
		s.SetState(playback.Failed(err))

		return err
	}

	previous := s.session
	s.session = session
	s.track = track
	s.mu.Unlock()

	if previous != "" {
		s.release(ctx, previous)
	}

	return nil
}

// Play implements playback.Source. A ramp starts silent and raises the
// provider volume in steps.
func (s *Source) Play(ctx context.Context, opts playback.PlayOptions) error {
	s.mu.Lock()
	session, track := s.session, s.track
	s.mu.Unlock()

	if session == "" {
		return playback.ErrNotPrepared
	}

	initial := opts.Volume
	if opts.Ramp > 0 {
		initial = 0
	}

	if err := s.client.Play(ctx, session, initial); err != nil {
		s.SetState(playback.Failed(err))

		return err
	}

	if track.StartOffset > 0 {
		if err := s.client.Seek(ctx, session, track.StartOffset); err != nil {
			s.SetState(playback.Failed(err))

			return err
		}
	}

	if opts.Ramp > 0 {
		s.startRamp(ctx, session, opts)
	}

	s.SetState(playback.Playing(domain.Describe(track)))

	return nil
}

// Stop implements playback.Source: pause, then release the session.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = ""
	stopRamp, rampDone := s.stopRamp, s.rampDone
	s.stopRamp, s.rampDone = nil, nil
	s.mu.Unlock()

	if stopRamp != nil {
		close(stopRamp)
		<-rampDone
	}

	s.SetState(playback.Idle())

	if session == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	return errors.Join(s.client.Pause(ctx, session), s.client.Release(ctx, session))
}

func (s *Source) startRamp(ctx context.Context, session string, opts playback.PlayOptions) {
	stop := make(chan struct{})
	done := make(chan struct{})

	s.mu.Lock()
	s.stopRamp, s.rampDone = stop, done
	s.mu.Unlock()

	step := max(opts.Ramp/rampSteps, minRampStep)
	rampCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(done)

		audio.Ramp(stop, opts.Volume, opts.Ramp, step, func(v float64) {
			if v == 0 {
				return
			}

			reqCtx, cancel := context.WithTimeout(rampCtx, releaseTimeout)
			defer cancel()

			if err := s.client.SetVolume(reqCtx, session, v); err != nil {
				logger.WarnKV(rampCtx, "Volume ramp step failed", "error", err)
			}
		})
	}()
}

func (s *Source) release(ctx context.Context, session string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := s.client.Release(ctx, session); err != nil {
		logger.WarnKV(ctx, "Releasing streaming session failed", "error", err)
	}
}
