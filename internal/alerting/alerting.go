package alerting

import (
	"context"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Escalator is told about an alarm that could not be armed.
type Escalator interface {
	Escalate(ctx context.Context, alarmID int64, err error)
}

// Fanout delivers every escalation to each of its members in order.
type Fanout []Escalator

// Escalate implements Escalator.
func (f Fanout) Escalate(ctx context.Context, alarmID int64, err error) {
	for _, e := range f {
		if e != nil {
			e.Escalate(ctx, alarmID, err)
		}
	}
}

// Sentry reports escalations as Sentry exceptions tagged with the alarm id.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a reporter with its own client, leaving the global hub
// untouched. A nil transport uses the default HTTP transport.
func NewSentry(cfg config.SentryConfig, release string, transport sentry.Transport) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
		Transport:   transport,
		SampleRate:  1.0,
	})
	if err != nil {
		return nil, err
	}

	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Escalate implements Escalator.
func (s *Sentry) Escalate(ctx context.Context, alarmID int64, err error) {
	hub := s.hub.Clone()

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("alarm_id", strconv.FormatInt(alarmID, 10))
		scope.SetTag("component", "scheduler")

		if id := hub.CaptureException(err); id == nil {
			logger.DebugKV(ctx, "Sentry dropped the escalation", "alarm_id", alarmID)
		}
	})
}

// Flush waits up to timeout for queued events to be delivered.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
