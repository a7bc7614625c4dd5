package playback

import (
	"context"
	"sync"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// fakeSource scripts a music source.
type fakeSource struct {
	StateTracker

	name    string
	prepare func(ctx context.Context, pref domain.AudioPreference) error
	playErr error

	mu       sync.Mutex
	prepared []domain.AudioPreference
	played   []PlayOptions
	stops    int
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name}
}

// hang makes Prepare block until its context ends.
func (f *fakeSource) hang() *fakeSource {
	f.prepare = func(ctx context.Context, _ domain.AudioPreference) error {
		<-ctx.Done()

		return ctx.Err()
	}

	return f
}

// failWith makes Prepare fail immediately.
func (f *fakeSource) failWith(err error) *fakeSource {
	f.prepare = func(context.Context, domain.AudioPreference) error { return err }

	return f
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Prepare(ctx context.Context, pref domain.AudioPreference) error {
	f.mu.Lock()
	f.prepared = append(f.prepared, pref)
	prepare := f.prepare
	f.mu.Unlock()

	f.SetState(Preparing())

	if prepare != nil {
		if err := prepare(ctx, pref); err != nil {
			f.SetState(Failed(err))

			return err
		}
	}

	return nil
}

func (f *fakeSource) Play(_ context.Context, opts PlayOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.playErr != nil {
		return f.playErr
	}

	f.played = append(f.played, opts)
	f.SetState(Playing(f.name))

	return nil
}

func (f *fakeSource) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
	f.SetState(Idle())

	return nil
}

func (f *fakeSource) counts() (prepared, played, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.prepared), len(f.played), f.stops
}

// stateLog records published states.
type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) listen(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.states = append(l.states, s)
}

func (l *stateLog) phases() []Phase {
	l.mu.Lock()
	defer l.mu.Unlock()

	phases := make([]Phase, 0, len(l.states))
	for _, s := range l.states {
		phases = append(phases, s.Phase)
	}

	return phases
}

func (l *stateLog) all() []State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]State(nil), l.states...)
}

func newObservedController(local, remote Source, opts ...ControllerOption) (*Controller, *stateLog) {
	log := new(stateLog)
	c := NewController(local, remote, opts...)
	c.Broadcaster().Subscribe(log.listen)

	return c, log
}
