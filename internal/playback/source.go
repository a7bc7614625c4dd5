package playback

import (
	"context"
	"sync"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// PlayOptions tune how a prepared source plays.
type PlayOptions struct {
	// Volume is the target volume in [0, 1].
	Volume float64
	// Ramp is how long the volume takes to rise from silence; zero means none.
	Ramp time.Duration
}

// Source is a music source the controller can drive.
type Source interface {
	// Name identifies the source in logs, errors and metrics.
	Name() string
	// Prepare makes the preference ready to play. It must return when ctx ends.
	Prepare(ctx context.Context, pref domain.AudioPreference) error
	// Play starts the prepared preference.
	Play(ctx context.Context, opts PlayOptions) error
	// Stop halts playback and releases whatever Prepare acquired.
	// It is safe to call in any state.
	Stop(ctx context.Context) error
	// State reports the source's own view of its state.
	State() State
}

// StateTracker keeps a source's state. Embed it to implement Source.State.
type StateTracker struct {
	mu    sync.Mutex
	state State
}

// State returns the tracked state.
func (t *StateTracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// SetState replaces the tracked state and stamps it.
func (t *StateTracker) SetState(s State) {
	if s.At.IsZero() {
		s.At = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = s
}
