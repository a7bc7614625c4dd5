package tone

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/alarm-clock/internal/audio"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/playback"
)

// SourceName identifies the local source.
const SourceName = "tone"

// Source plays library tones on an output, looping until stopped.
// Preparation is synchronous and never touches the network.
type Source struct {
	playback.StateTracker

	lib *Library
	out audio.Output

	mu       sync.Mutex
	prepared *audio.PCM
	name     string
	stream   audio.Stream
}

// NewSource creates a local source.
func NewSource(lib *Library, out audio.Output) *Source {
	s := &Source{lib: lib, out: out}
	s.SetState(playback.Idle())

	return s
}

// Name implements playback.Source.
func (s *Source) Name() string { return SourceName }

// Prepare implements playback.Source. It accepts LocalTone preferences only.
func (s *Source) Prepare(_ context.Context, pref domain.AudioPreference) error {
	tone, ok := pref.(domain.LocalTone)
	if !ok {
		return fmt.Errorf("%w: %T", playback.ErrUnsupportedPreference, pref)
	}

	s.SetState(playback.Preparing())

	pcm, err := s.lib.Resolve(tone.Name)
	if err != nil {
		s.SetState(playback.Failed(err))

		return err
	}

	s.mu.Lock()
	s.prepared = &pcm
	s.name = tone.Name
	s.mu.Unlock()

	return nil
}

// Play implements playback.Source.
func (s *Source) Play(ctx context.Context, opts playback.PlayOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prepared == nil {
		return playback.ErrNotPrepared
	}

	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			logger.WarnKV(ctx, "Stopping the previous tone stream failed", "tone", s.name, "error", err)
		}

		s.stream = nil
	}

	stream, err := s.out.Start(*s.prepared, audio.Playback{Volume: opts.Volume, Ramp: opts.Ramp, Loop: true})
	if err != nil {
		s.SetState(playback.Failed(err))

		return err
	}

	s.stream = stream
	s.SetState(playback.Playing(domain.Describe(domain.LocalTone{Name: s.name})))

	return nil
}

// Stop implements playback.Source.
func (s *Source) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error

	if s.stream != nil {
		err = s.stream.Stop()
		s.stream = nil
	}

	s.prepared = nil
	s.SetState(playback.Idle())

	return err
}
