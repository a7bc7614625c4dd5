package waketimer

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder collects fire callbacks.
type recorder struct {
	mu    sync.Mutex
	fired []fired
}

type fired struct {
	alarmID int64
	handle  Handle
	at      time.Time
}

func (r *recorder) fire(alarmID int64, handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fired = append(r.fired, fired{alarmID: alarmID, handle: handle, at: time.Now()})
}

func (r *recorder) snapshot() []fired {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]fired(nil), r.fired...)
}

func TestTimer_FiresAtInstant(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := new(recorder)
		timer := New(context.Background(), rec.fire)

		defer timer.Close()

		start := time.Now()

		h, err := timer.Arm(7, start.Add(90*time.Minute))
		require.NoError(t, err)
		require.NotZero(t, h)
		require.Equal(t, 1, timer.pending())

		time.Sleep(90*time.Minute - time.Second)
		synctest.Wait()
		require.Empty(t, rec.snapshot())

		time.Sleep(time.Second)
		synctest.Wait()

		got := rec.snapshot()
		require.Len(t, got, 1)
		require.Equal(t, int64(7), got[0].alarmID)
		require.Equal(t, h, got[0].handle)
		require.Equal(t, start.Add(90*time.Minute), got[0].at)
		require.Zero(t, timer.pending())
	})
}

func TestTimer_OrderAndPast(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := new(recorder)
		timer := New(context.Background(), rec.fire)

		defer timer.Close()

		now := time.Now()

		_, err := timer.Arm(2, now.Add(2*time.Hour))
		require.NoError(t, err)
		_, err = timer.Arm(1, now.Add(time.Hour))
		require.NoError(t, err)
		_, err = timer.Arm(3, now.Add(-time.Minute))
		require.NoError(t, err)

		synctest.Wait()

		got := rec.snapshot()
		require.Len(t, got, 1)
		require.Equal(t, int64(3), got[0].alarmID)

		time.Sleep(2 * time.Hour)
		synctest.Wait()

		got = rec.snapshot()
		require.Len(t, got, 3)
		require.Equal(t, int64(1), got[1].alarmID)
		require.Equal(t, int64(2), got[2].alarmID)
	})
}

func TestTimer_CancelBeforeFire(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := new(recorder)
		timer := New(context.Background(), rec.fire)

		defer timer.Close()

		h, err := timer.Arm(1, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, timer.Cancel(h))

		// Unknown handles are ignored.
		require.NoError(t, timer.Cancel(h))
		require.NoError(t, timer.Cancel(12345))

		time.Sleep(time.Hour)
		synctest.Wait()

		require.Empty(t, rec.snapshot())
		require.Zero(t, timer.pending())
	})
}

func TestTimer_LongSleepIsCapped(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := new(recorder)
		timer := New(context.Background(), rec.fire)

		defer timer.Close()

		at := time.Now().Add(72 * time.Hour)

		_, err := timer.Arm(9, at)
		require.NoError(t, err)

		time.Sleep(72 * time.Hour)
		synctest.Wait()

		got := rec.snapshot()
		require.Len(t, got, 1)
		require.Equal(t, at, got[0].at)
	})
}

func TestTimer_Closed(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		timer := New(ctx, func(int64, Handle) {})

		cancel()
		require.NoError(t, timer.Close())

		_, err := timer.Arm(1, time.Now())
		require.ErrorIs(t, err, ErrClosed)
		require.ErrorIs(t, timer.Cancel(1), ErrClosed)
		require.Zero(t, timer.pending())
	})
}
