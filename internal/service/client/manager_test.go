package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
	"github.com/oshokin/alarm-clock/internal/service/scheduler"
)

var (
	monday7am  = time.Date(2026, time.March, 2, 7, 0, 0, 0, time.UTC)
	errOffline = status.Error(codes.Unavailable, "connection refused")
)

// fakeDaemon records control calls.
type fakeDaemon struct {
	mu      sync.Mutex
	calls   []string
	err     error
	status  api.Status
	armedAt time.Time
}

func (f *fakeDaemon) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)

	return f.err
}

func (f *fakeDaemon) Reschedule(_ context.Context, id int64) (time.Time, error) {
	if err := f.record(fmt.Sprintf("reschedule %d", id)); err != nil {
		return time.Time{}, err
	}

	return f.armedAt, nil
}

func (f *fakeDaemon) Cancel(_ context.Context, id int64) error {
	return f.record(fmt.Sprintf("cancel %d", id))
}

func (f *fakeDaemon) Trigger(_ context.Context, id int64) error {
	return f.record(fmt.Sprintf("trigger %d", id))
}

func (f *fakeDaemon) StopPlayback(context.Context) error {
	return f.record("stop")
}

func (f *fakeDaemon) Status(context.Context) (api.Status, error) {
	if err := f.record("status"); err != nil {
		return api.Status{}, err
	}

	return f.status, nil
}

func (f *fakeDaemon) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func newTestManager(t *testing.T, daemon Daemon) (*Manager, alarmrepo.Repository) {
	t.Helper()

	repo := alarmrepo.NewFileRepository(filepath.Join(t.TempDir(), "alarms.yaml"))
	m := NewManager(repo, daemon, time.UTC)
	m.now = func() time.Time { return monday7am }

	return m, repo
}

func sevenThirty(t *testing.T) domain.TimeOfDay {
	t.Helper()

	tod, err := domain.ParseTimeOfDay("07:30")
	require.NoError(t, err)

	return tod
}

func TestManager_AddAssignsIDsAndReschedules(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	daemon := &fakeDaemon{armedAt: monday7am.Add(30 * time.Minute)}
	m, repo := newTestManager(t, daemon)

	first, err := m.Add(ctx, AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "chime"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, first.ID)
	require.True(t, first.Enabled)
	require.InDelta(t, domain.DefaultVolume, first.Volume, 1e-9)
	require.Equal(t, domain.DefaultSnoozeMinutes, first.SnoozeMinutes)

	volume := 0.4

	second, err := m.Add(ctx, AddRequest{
		Label:        "Gym",
		Time:         sevenThirty(t),
		Recurrence:   domain.NewRecurrence(time.Monday, time.Wednesday),
		Audio:        domain.LocalTone{Name: "beep"},
		Volume:       &volume,
		Disabled:     true,
		RingDuration: 5 * time.Minute,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, second.ID)
	require.False(t, second.Enabled)

	stored, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Gym", stored.Label)
	require.InDelta(t, 0.4, stored.Volume, 1e-9)
	require.Equal(t, 5*time.Minute, stored.RingDuration)

	require.Equal(t, []string{"reschedule 1", "reschedule 2"}, daemon.recorded())
}

func TestManager_AddRejectsInvalidAlarm(t *testing.T) {
	t.Parallel()

	m, repo := newTestManager(t, nil)

	_, err := m.Add(context.Background(), AddRequest{Time: sevenThirty(t)})
	require.ErrorIs(t, err, domain.ErrMissingAudio)

	for _, volume := range []float64{0, -0.5, 1.2} {
		_, err = m.Add(context.Background(), AddRequest{
			Time:   sevenThirty(t),
			Audio:  domain.LocalTone{Name: "default"},
			Volume: &volume,
		})
		require.ErrorIs(t, err, domain.ErrInvalidVolume, volume)
	}

	alarms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, alarms)
}

func TestManager_OfflineDaemonIsTolerated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	daemon := &fakeDaemon{err: fmt.Errorf("reschedule alarm 1: %w", errOffline)}
	m, _ := newTestManager(t, daemon)

	a, err := m.Add(ctx, AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "default"}})
	require.NoError(t, err)

	_, err = m.SetEnabled(ctx, a.ID, false)
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, a.ID))

	require.ErrorIs(t, m.StopPlayback(ctx), ErrDaemonUnavailable)
}

func TestManager_SchedulingFailureIsReported(t *testing.T) {
	t.Parallel()

	daemon := &fakeDaemon{err: errors.Join(scheduler.ErrSchedulingFailure, errors.New("timer closed"))}
	m, repo := newTestManager(t, daemon)

	_, err := m.Add(context.Background(), AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "default"}})
	require.ErrorIs(t, err, scheduler.ErrSchedulingFailure)

	// The alarm is kept so the daemon can retry on its next start.
	_, err = repo.Get(context.Background(), 1)
	require.NoError(t, err)
}

func TestManager_ListMergesDaemonStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	daemon := new(fakeDaemon)
	m, _ := newTestManager(t, daemon)

	_, err := m.Add(ctx, AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "default"}})
	require.NoError(t, err)

	_, err = m.Add(ctx, AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "default"}, Disabled: true})
	require.NoError(t, err)

	daemon.status = api.Status{
		Playback: api.PlaybackStatus{State: "idle"},
		Armed:    []api.ArmedAlarm{{AlarmID: 1, At: monday7am.Add(30 * time.Minute)}},
		Warnings: []api.AlarmWarning{{AlarmID: 2, Error: "timer closed", At: monday7am}},
	}

	listing, err := m.List(ctx)
	require.NoError(t, err)
	require.True(t, listing.DaemonRunning)
	require.Equal(t, "idle", listing.Playback.State)
	require.Len(t, listing.Entries, 2)

	require.True(t, listing.Entries[0].Armed)
	require.Equal(t, monday7am.Add(30*time.Minute), listing.Entries[0].NextTrigger)

	require.False(t, listing.Entries[1].Armed)
	require.True(t, listing.Entries[1].NextTrigger.IsZero())
	require.Equal(t, "timer closed", listing.Entries[1].Warning)
}

func TestManager_ListWithoutDaemon(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newTestManager(t, &fakeDaemon{err: errOffline})

	_, err := m.Add(ctx, AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "default"}})
	require.NoError(t, err)

	listing, err := m.List(ctx)
	require.NoError(t, err)
	require.False(t, listing.DaemonRunning)
	require.Len(t, listing.Entries, 1)
	require.False(t, listing.Entries[0].Armed)
}

func TestManager_Trigger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	daemon := new(fakeDaemon)
	m, _ := newTestManager(t, daemon)

	require.ErrorIs(t, m.Trigger(ctx, 5), alarmrepo.ErrNotFound)

	_, err := m.Add(ctx, AddRequest{Time: sevenThirty(t), Audio: domain.LocalTone{Name: "default"}})
	require.NoError(t, err)

	require.NoError(t, m.Trigger(ctx, 1))
	require.Contains(t, daemon.recorded(), "trigger 1")

	daemon.err = errOffline
	require.ErrorIs(t, m.Trigger(ctx, 1), ErrDaemonUnavailable)
}

func TestManager_RemoveMissing(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, new(fakeDaemon))

	require.ErrorIs(t, m.Remove(context.Background(), 9), alarmrepo.ErrNotFound)
	_, err := m.SetEnabled(context.Background(), 9, true)
	require.ErrorIs(t, err, alarmrepo.ErrNotFound)
}
