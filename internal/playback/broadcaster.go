package playback

import (
	"context"
	"sync"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Listener receives published states. It must not call back into the controller.
type Listener func(State)

// Broadcaster delivers states to listeners synchronously, in subscription order.
type Broadcaster struct {
	mu        sync.RWMutex
	next      int
	listeners []subscription
}

type subscription struct {
	id       int
	listener Listener
}

// NewBroadcaster creates a broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return new(Broadcaster)
}

// Subscribe adds a listener and returns a function removing it.
func (b *Broadcaster) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.listeners = append(b.listeners, subscription{id: id, listener: l})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)

				return
			}
		}
	}
}

// Publish calls every listener with the state. A panicking listener is
// logged and does not prevent delivery to the others.
func (b *Broadcaster) Publish(s State) {
	b.mu.RLock()
	listeners := make([]subscription, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, sub := range listeners {
		deliver(sub.listener, s)
	}
}

func deliver(l Listener, s State) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(context.Background(), "Playback listener panicked", "panic", r)
		}
	}()

	l(s)
}

// LogListener logs every transition.
func LogListener(ctx context.Context) Listener {
	ctx = logger.WithName(ctx, "playback")

	return func(s State) {
		switch s.Phase {
		case PhaseError:
			logger.WarnKV(ctx, "Playback failed", "session", s.Session, "cause", s.CauseString())
		case PhasePlaying:
			logger.InfoKV(ctx, "Playback started", "session", s.Session, "what", s.Description, "fallback", s.Fallback)
		default:
			logger.DebugKV(ctx, "Playback state", "session", s.Session, "state", s.Phase.String())
		}
	}
}
