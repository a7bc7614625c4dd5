package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
)

func writeSettings(t *testing.T) (string, *config.Config) {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "alarms.yaml")
	cfg.Playback.Output = config.OutputSilent

	path := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return path, cfg
}

func TestPlayOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path, cfg := writeSettings(t)

	repo := alarmrepo.NewFileRepository(cfg.Store.Path)
	require.NoError(t, repo.Upsert(ctx, toneAlarm(3, domain.Once)))

	output := audio.NewSilentOutput()

	err := PlayOnce(ctx, &LocalOptions{
		ConfigPath: path,
		AlarmID:    3,
		Duration:   20 * time.Millisecond,
		output:     output,
	})
	require.NoError(t, err)
	require.Len(t, output.Started(), 1)
	require.True(t, output.Started()[0].Loop)
	require.Zero(t, output.Active())

	stored, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, stored.Enabled)
}

func TestPlayOnce_DefaultsToRingDuration(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		path, cfg := writeSettings(t)

		a := toneAlarm(4, domain.Daily())
		a.RingDuration = 2 * time.Minute

		repo := alarmrepo.NewFileRepository(cfg.Store.Path)
		require.NoError(t, repo.Upsert(ctx, a))

		output := audio.NewSilentOutput()
		started := time.Now()

		err := PlayOnce(ctx, &LocalOptions{ConfigPath: path, AlarmID: 4, output: output})
		require.NoError(t, err)
		require.Equal(t, 2*time.Minute, time.Since(started))
		require.Zero(t, output.Active())
	})
}

func TestPlayOnce_MissingAlarm(t *testing.T) {
	t.Parallel()

	path, _ := writeSettings(t)

	err := PlayOnce(context.Background(), &LocalOptions{ConfigPath: path, AlarmID: 9})
	require.ErrorIs(t, err, alarmrepo.ErrNotFound)
}
