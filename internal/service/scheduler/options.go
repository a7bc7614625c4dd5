package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oshokin/alarm-clock/internal/observability/metrics"
)

const (
	defaultRetryInitial    = 200 * time.Millisecond
	defaultRetryMaxElapsed = 30 * time.Second
)

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLocation sets the zone alarms without their own timezone resolve in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithDispatcher sets who receives fired alarms.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Scheduler) {
		s.dispatcher = d
	}
}

// WithEscalator sets who is told about scheduling failures.
func WithEscalator(e Escalator) Option {
	return func(s *Scheduler) {
		s.escalator = e
	}
}

// WithMetrics records armed alarms, fires and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithRetryMaxElapsed bounds how long arm and lookup failures are retried.
// Zero disables retries.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(s *Scheduler) {
		s.newBackOff = func() backoff.BackOff {
			if d <= 0 {
				return &backoff.StopBackOff{}
			}

			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultRetryInitial
			b.MaxElapsedTime = d

			return b
		}
	}
}
