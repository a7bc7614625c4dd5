package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

var (
	defaultTone = domain.LocalTone{Name: "default"}
	track       = domain.StreamingTrack{URI: "spotify:track:abc", Fallback: defaultTone, StartOffset: 30 * time.Second}
	playOpts    = PlayOptions{Volume: 0.8, Ramp: time.Minute}
)

func TestRealize_LocalTone(t *testing.T) {
	t.Parallel()

	local := newFakeSource("tone")
	c, log := newObservedController(local, nil)

	state, err := c.Realize(context.Background(), defaultTone, playOpts)
	require.NoError(t, err)
	require.Equal(t, PhasePlaying, state.Phase)
	require.Equal(t, "Tone: default", state.Description)
	require.False(t, state.Fallback)
	require.NotEmpty(t, state.Session)
	require.Equal(t, []Phase{PhasePreparing, PhasePlaying}, log.phases())
	require.Equal(t, []PlayOptions{playOpts}, local.played)

	require.NoError(t, c.Stop(context.Background()))
	require.Equal(t, []Phase{PhasePreparing, PhasePlaying, PhaseIdle}, log.phases())
	require.Equal(t, PhaseIdle, c.State().Phase)

	_, _, stops := local.counts()
	require.Equal(t, 1, stops)
}

func TestRealize_StreamTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		local := newFakeSource("tone")
		remote := newFakeSource("stream").hang()
		c, log := newObservedController(local, remote, WithPrepareTimeout(5*time.Second))

		started := time.Now()

		state, err := c.Realize(context.Background(), track, playOpts)
		require.NoError(t, err)
		require.LessOrEqual(t, time.Since(started), 5*time.Second+10*time.Millisecond)

		require.Equal(t, PhasePlaying, state.Phase)
		require.Equal(t, "Tone: default", state.Description)
		require.True(t, state.Fallback)

		states := log.all()
		require.Equal(t, []Phase{PhasePreparing, PhaseError, PhasePlaying}, log.phases())
		require.ErrorIs(t, states[1].Cause, ErrPreparationTimeout)

		var serr *SourceError
		require.ErrorAs(t, states[1].Cause, &serr)
		require.Equal(t, "stream", serr.Source)

		// The hung preparation was told to stop and released.
		_, remotePlayed, remoteStops := remote.counts()
		require.Zero(t, remotePlayed)
		require.Equal(t, 1, remoteStops)
		require.Equal(t, []domain.AudioPreference{defaultTone}, local.prepared)

		synctest.Wait()
		require.NoError(t, c.Stop(context.Background()))
	})
}

func TestRealize_StreamReady(t *testing.T) {
	t.Parallel()

	local := newFakeSource("tone")
	remote := newFakeSource("stream")
	c, log := newObservedController(local, remote)

	state, err := c.Realize(context.Background(), track, playOpts)
	require.NoError(t, err)
	require.Equal(t, "Stream: spotify:track:abc", state.Description)
	require.False(t, state.Fallback)
	require.Equal(t, []Phase{PhasePreparing, PhasePlaying}, log.phases())

	prepared, _, _ := local.counts()
	require.Zero(t, prepared)
}

func TestRealize_StreamErrorsFallBack(t *testing.T) {
	t.Parallel()

	cases := map[string]func(remote *fakeSource){
		"prepare error": func(remote *fakeSource) { remote.failWith(errors.New("connection refused")) },
		"play error":    func(remote *fakeSource) { remote.playErr = errors.New("device offline") },
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			local := newFakeSource("tone")
			remote := newFakeSource("stream")
			setup(remote)

			c, log := newObservedController(local, remote)

			state, err := c.Realize(context.Background(), track, playOpts)
			require.NoError(t, err)
			require.True(t, state.Fallback)
			require.Equal(t, []Phase{PhasePreparing, PhaseError, PhasePlaying}, log.phases())

			var serr *SourceError
			require.ErrorAs(t, log.all()[1].Cause, &serr)
		})
	}
}

func TestRealize_MissingRemoteFallsBack(t *testing.T) {
	t.Parallel()

	c, _ := newObservedController(newFakeSource("tone"), nil)

	state, err := c.Realize(context.Background(), track, playOpts)
	require.NoError(t, err)
	require.True(t, state.Fallback)
}

func TestRealize_LocalToneUnresolvableIsTerminal(t *testing.T) {
	t.Parallel()

	missing := errors.New("no such tone")
	local := newFakeSource("tone").failWith(missing)
	remote := newFakeSource("stream")
	c, log := newObservedController(local, remote)

	var (
		state State
		err   error
	)

	require.NotPanics(t, func() {
		state, err = c.Realize(context.Background(), domain.LocalTone{Name: "missing"}, playOpts)
	})
	require.ErrorIs(t, err, missing)
	require.Equal(t, PhaseError, state.Phase)
	require.Equal(t, []Phase{PhasePreparing, PhaseError}, log.phases())

	prepared, played, _ := local.counts()
	require.Equal(t, 1, prepared)
	require.Zero(t, played)

	remotePrepared, _, _ := remote.counts()
	require.Zero(t, remotePrepared)
}

func TestRealize_FallbackFailureIsReported(t *testing.T) {
	t.Parallel()

	local := newFakeSource("tone").failWith(errors.New("speaker missing"))
	remote := newFakeSource("stream").failWith(errors.New("connection refused"))
	c, log := newObservedController(local, remote)

	state, err := c.Realize(context.Background(), track, playOpts)
	require.Error(t, err)
	require.ErrorContains(t, err, "speaker missing")
	require.ErrorContains(t, err, "connection refused")
	require.Equal(t, PhaseError, state.Phase)
	require.Equal(t, []Phase{PhasePreparing, PhaseError, PhaseError}, log.phases())
}

func TestStop_DuringPreparationCancelsIt(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		local := newFakeSource("tone")
		remote := newFakeSource("stream").hang()
		c, log := newObservedController(local, remote)

		var (
			wg  sync.WaitGroup
			err error
		)

		wg.Go(func() {
			_, err = c.Realize(context.Background(), track, playOpts)
		})

		time.Sleep(time.Second)
		synctest.Wait()
		require.Equal(t, PhasePreparing, c.State().Phase)

		require.NoError(t, c.Stop(context.Background()))
		wg.Wait()

		require.ErrorIs(t, err, ErrStopped)
		require.Equal(t, []Phase{PhasePreparing, PhaseIdle}, log.phases())

		// No playback started afterwards, not even the fallback.
		time.Sleep(10 * time.Second)
		synctest.Wait()

		_, localPlayed, _ := local.counts()
		_, remotePlayed, _ := remote.counts()
		require.Zero(t, localPlayed)
		require.Zero(t, remotePlayed)
		require.Equal(t, PhaseIdle, c.State().Phase)
	})
}

func TestStop_WhenIdleIsNoop(t *testing.T) {
	t.Parallel()

	local := newFakeSource("tone")
	c, log := newObservedController(local, nil)

	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
	require.Empty(t, log.phases())

	_, _, stops := local.counts()
	require.Zero(t, stops)
}

func TestRealize_SupersedesPlayingSession(t *testing.T) {
	t.Parallel()

	local := newFakeSource("tone")
	remote := newFakeSource("stream")
	c, log := newObservedController(local, remote)

	first, err := c.Realize(context.Background(), defaultTone, playOpts)
	require.NoError(t, err)

	second, err := c.Realize(context.Background(), track, playOpts)
	require.NoError(t, err)
	require.NotEqual(t, first.Session, second.Session)

	_, _, localStops := local.counts()
	require.Equal(t, 1, localStops)
	require.Equal(t, []Phase{PhasePreparing, PhasePlaying, PhasePreparing, PhasePlaying}, log.phases())
}

func TestStopSession_OnlyStopsCurrentSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := newFakeSource("tone")
	c, log := newObservedController(local, nil)

	first, err := c.Realize(ctx, defaultTone, playOpts)
	require.NoError(t, err)

	second, err := c.Realize(ctx, defaultTone, playOpts)
	require.NoError(t, err)

	stopped, err := c.StopSession(ctx, first.Session)
	require.NoError(t, err)
	require.False(t, stopped)
	require.Equal(t, PhasePlaying, c.State().Phase)
	require.Equal(t, second.Session, c.State().Session)

	stopped, err = c.StopSession(ctx, "")
	require.NoError(t, err)
	require.False(t, stopped)

	stopped, err = c.StopSession(ctx, second.Session)
	require.NoError(t, err)
	require.True(t, stopped)
	require.Equal(t, PhaseIdle, c.State().Phase)

	// The session is over, so a late request does nothing.
	stopped, err = c.StopSession(ctx, second.Session)
	require.NoError(t, err)
	require.False(t, stopped)

	_, _, stops := local.counts()
	require.Equal(t, 2, stops)
	require.Equal(t, []Phase{PhasePreparing, PhasePlaying, PhasePreparing, PhasePlaying, PhaseIdle}, log.phases())
}

// TestRealize_TimeoutLeavesNoGoroutines runs on the real clock.
func TestRealize_TimeoutLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	remote := newFakeSource("stream").hang()
	c := NewController(newFakeSource("tone"), remote, WithPrepareTimeout(20*time.Millisecond))

	state, err := c.Realize(context.Background(), track, playOpts)
	require.NoError(t, err)
	require.True(t, state.Fallback)
	require.NoError(t, c.Stop(context.Background()))
}
