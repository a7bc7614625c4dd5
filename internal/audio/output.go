package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// ErrNoDevice is returned when the sound device cannot be opened.
var ErrNoDevice = errors.New("audio device unavailable")

// Playback tunes how a buffer is rendered.
type Playback struct {
	// Volume is the target volume in [0, 1].
	Volume float64
	// Ramp is how long the volume takes to rise from silence.
	Ramp time.Duration
	// Loop repeats the buffer until stopped.
	Loop bool
}

// Output renders PCM buffers.
type Output interface {
	// Name identifies the output in logs.
	Name() string
	// Start begins rendering and returns at once.
	Start(pcm PCM, p Playback) (Stream, error)
}

// Stream is a running render.
type Stream interface {
	// Stop ends the render. It is idempotent.
	Stop() error
}

// Ramp raises the volume linearly from zero to target over d, calling set
// every step, until stop is closed. A zero d sets the target at once.
func Ramp(stop <-chan struct{}, target float64, d, step time.Duration, set func(float64)) {
	if d <= 0 || step <= 0 {
		set(target)

		return
	}

	set(0)

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	started := time.Now()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			elapsed := time.Since(started)
			if elapsed >= d {
				set(target)

				return
			}

			set(target * float64(elapsed) / float64(d))
		}
	}
}

// stopOnce is an embeddable idempotent stop signal.
type stopOnce struct {
	once sync.Once
	ch   chan struct{}
}

func newStopOnce() stopOnce {
	return stopOnce{ch: make(chan struct{})}
}

func (s *stopOnce) signal() bool {
	first := false

	s.once.Do(func() {
		close(s.ch)

		first = true
	})

	return first
}

// BellOutput rings the terminal bell, the last resort when no device exists.
type BellOutput struct {
	w        io.Writer
	interval time.Duration
	mu       sync.Mutex
}

// NewBellOutput rings on w every interval while a stream runs.
func NewBellOutput(w io.Writer, interval time.Duration) *BellOutput {
	if interval <= 0 {
		interval = time.Second
	}

	return &BellOutput{w: w, interval: interval}
}

// Name implements Output.
func (b *BellOutput) Name() string { return "bell" }

// Start implements Output. The buffer only decides whether to loop.
func (b *BellOutput) Start(_ PCM, p Playback) (Stream, error) {
	s := &bellStream{stopOnce: newStopOnce(), done: make(chan struct{})}

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			b.ring()

			if !p.Loop {
				return
			}

			select {
			case <-s.ch:
				return
			case <-ticker.C:
			}
		}
	}()

	return s, nil
}

func (b *BellOutput) ring() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := io.WriteString(b.w, "\a"); err != nil {
		logger.DebugKV(context.Background(), "Terminal bell failed", "error", err)
	}
}

type bellStream struct {
	stopOnce

	done chan struct{}
}

func (s *bellStream) Stop() error {
	s.signal()
	<-s.done

	return nil
}

// SilentOutput renders nothing and remembers what it was asked to play.
type SilentOutput struct {
	mu      sync.Mutex
	started []Playback
	active  int
}

// NewSilentOutput creates a silent output.
func NewSilentOutput() *SilentOutput {
	return new(SilentOutput)
}

// Name implements Output.
func (s *SilentOutput) Name() string { return "silent" }

// Start implements Output.
func (s *SilentOutput) Start(_ PCM, p Playback) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = append(s.started, p)
	s.active++

	return &silentStream{stopOnce: newStopOnce(), out: s}, nil
}

// Started returns the playbacks started so far.
func (s *SilentOutput) Started() []Playback {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Playback(nil), s.started...)
}

// Active returns the number of streams not yet stopped.
func (s *SilentOutput) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

type silentStream struct {
	stopOnce

	out *SilentOutput
}

func (s *silentStream) Stop() error {
	if s.signal() {
		s.out.mu.Lock()
		s.out.active--
		s.out.mu.Unlock()
	}

	return nil
}

// FallbackOutput tries outputs in order and uses the first that starts.
type FallbackOutput struct {
	outputs []Output
}

// NewFallbackOutput chains outputs.
func NewFallbackOutput(outputs ...Output) *FallbackOutput {
	return &FallbackOutput{outputs: outputs}
}

// Name implements Output.
func (f *FallbackOutput) Name() string { return "fallback" }

// Start implements Output.
func (f *FallbackOutput) Start(pcm PCM, p Playback) (Stream, error) {
	var errs []error

	for _, out := range f.outputs {
		stream, err := out.Start(pcm, p)
		if err == nil {
			return stream, nil
		}

		logger.WarnKV(context.Background(), "Audio output failed, trying next", "output", out.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", out.Name(), err))
	}

	return nil, errors.Join(errs...)
}
