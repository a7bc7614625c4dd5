package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/playback"
)

type message struct {
	topic    string
	payload  []byte
	retained bool
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	err          error
	disconnected bool
}

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.messages = append(f.messages, message{topic: topic, payload: payload, retained: retained})

	return nil
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disconnected = true
}

func (f *fakeClient) sent() []message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]message(nil), f.messages...)
}

var fixedNow = time.Date(2026, time.March, 3, 7, 0, 0, 0, time.UTC)

func newTestPublisher(client Client) *Publisher {
	p := NewPublisher(client, "home/alarm")
	p.now = func() time.Time { return fixedNow }

	return p
}

func TestPublisher_PlaybackTransitions(t *testing.T) {
	t.Parallel()

	client := new(fakeClient)
	listen := newTestPublisher(client).Listener(context.Background())

	listen(playback.State{Phase: playback.PhasePreparing, Session: "s1"})
	listen(playback.State{
		Phase:   playback.PhaseError,
		Session: "s1",
		Cause:   errors.New("provider down"),
		At:      fixedNow.Add(time.Second),
	})
	listen(playback.State{
		Phase:       playback.PhasePlaying,
		Session:     "s1",
		Description: "Tone: default",
		Fallback:    true,
	})

	sent := client.sent()
	require.Len(t, sent, 3)

	events := make([]PlaybackEvent, 0, len(sent))

	for _, m := range sent {
		require.Equal(t, "home/alarm/playback", m.topic)
		require.False(t, m.retained)

		var e PlaybackEvent
		require.NoError(t, json.Unmarshal(m.payload, &e))

		events = append(events, e)
	}

	require.Equal(t, []PlaybackEvent{
		{Session: "s1", State: "preparing", At: fixedNow},
		{Session: "s1", State: "error", Cause: "provider down", At: fixedNow.Add(time.Second)},
		{Session: "s1", State: "playing", Description: "Tone: default", Fallback: true, At: fixedNow},
	}, events)
}

func TestPublisher_EscalateIsRetained(t *testing.T) {
	t.Parallel()

	client := new(fakeClient)
	p := newTestPublisher(client)

	p.Escalate(context.Background(), 7, errors.New("timer closed"))

	sent := client.sent()
	require.Len(t, sent, 1)
	require.Equal(t, "home/alarm/warnings", sent[0].topic)
	require.True(t, sent[0].retained)
	require.JSONEq(t, `{"alarm_id":7,"error":"timer closed","at":"2026-03-03T07:00:00Z"}`, string(sent[0].payload))

	p.Close()
	require.True(t, client.disconnected)
}

func TestPublisher_BrokerFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("not connected")}
	p := newTestPublisher(client)

	require.NotPanics(t, func() {
		p.Listener(context.Background())(playback.Idle())
		p.Escalate(context.Background(), 1, errors.New("boom"))
	})
	require.Empty(t, client.sent())
}

func TestPublisher_Topic(t *testing.T) {
	t.Parallel()

	require.Equal(t, "playback", NewPublisher(nil, "").Topic(TopicPlayback))
	require.Equal(t, "a/b/warnings", NewPublisher(nil, "a/b").Topic(TopicWarnings))
}
