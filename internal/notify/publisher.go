package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/playback"
)

// Topic suffixes under the configured prefix.
const (
	TopicPlayback = "playback"
	TopicWarnings = "warnings"
)

// PlaybackEvent is the payload published on every playback transition.
type PlaybackEvent struct {
	Session     string    `json:"session,omitempty"`
	State       string    `json:"state"`
	Description string    `json:"description,omitempty"`
	Cause       string    `json:"cause,omitempty"`
	Fallback    bool      `json:"fallback,omitempty"`
	At          time.Time `json:"at"`
}

// WarningEvent is the payload published when an alarm could not be armed.
type WarningEvent struct {
	AlarmID int64     `json:"alarm_id"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// Publisher turns domain events into broker messages.
type Publisher struct {
	client Client
	prefix string
	now    func() time.Time
}

// NewPublisher creates a publisher writing under prefix.
func NewPublisher(client Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix, now: time.Now}
}

// Topic returns the full topic for the suffix.
func (p *Publisher) Topic(suffix string) string {
	if p.prefix == "" {
		return suffix
	}

	return p.prefix + "/" + suffix
}

// Listener returns a playback listener publishing every state it receives.
// Broker failures are logged and never reach the controller.
func (p *Publisher) Listener(ctx context.Context) playback.Listener {
	ctx = logger.WithName(context.WithoutCancel(ctx), "mqtt")

	return func(s playback.State) {
		at := s.At
		if at.IsZero() {
			at = p.now()
		}

		event := PlaybackEvent{
			Session:     s.Session,
			State:       s.Phase.String(),
			Description: s.Description,
			Cause:       s.CauseString(),
			Fallback:    s.Fallback,
			At:          at.UTC(),
		}

		p.publish(ctx, TopicPlayback, event, false)
	}
}

// Escalate publishes a retained warning about an alarm that could not be armed.
func (p *Publisher) Escalate(ctx context.Context, alarmID int64, err error) {
	event := WarningEvent{
		AlarmID: alarmID,
		Error:   err.Error(),
		At:      p.now().UTC(),
	}

	p.publish(logger.WithName(ctx, "mqtt"), TopicWarnings, event, true)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect()
}

func (p *Publisher) publish(ctx context.Context, suffix string, event any, retained bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.ErrorKV(ctx, "Encoding MQTT event failed", "error", err)

		return
	}

	topic := p.Topic(suffix)
	if err = p.client.Publish(ctx, topic, payload, retained); err != nil {
		logger.WarnKV(ctx, "Publishing MQTT event failed", "topic", topic, "error", err)
	}
}
