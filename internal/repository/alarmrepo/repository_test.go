package alarmrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

func sampleAlarms() []domain.Alarm {
	tone := domain.New(1, domain.TimeOfDay{Hour: 6, Minute: 30},
		domain.NewRecurrence(time.Monday, time.Friday), domain.LocalTone{Name: "chime"})
	tone.Label = "Work"
	tone.VolumeRampMinutes = 2
	tone.Volume = 0.5

	stream := domain.New(2, domain.TimeOfDay{Hour: 8, Second: 15}, domain.Once, domain.StreamingTrack{
		URI:         "spotify:track:abc",
		Fallback:    domain.LocalTone{Name: "default"},
		StartOffset: 1500 * time.Millisecond,
	})
	stream.Timezone = "UTC"
	stream.StartDate = domain.Date{Year: 2025, Month: time.July, Day: 1}
	stream.VibrationEnabled = true
	stream.Enabled = false
	stream.RingDuration = 90 * time.Second

	return []domain.Alarm{tone, stream}
}

// exerciseRepository runs the same contract against every store.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.Background()

	_, err := repo.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	want := sampleAlarms()
	// Insert out of order to check List sorts by id.
	require.NoError(t, repo.Upsert(ctx, want[1]))
	require.NoError(t, repo.Upsert(ctx, want[0]))

	for _, a := range want {
		got, err := repo.Get(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, a, got)
	}

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, want, list)

	created, err := repo.Create(ctx, func(id int64) (domain.Alarm, error) {
		return domain.New(id, domain.TimeOfDay{Hour: 9}, domain.Daily(), domain.LocalTone{Name: "beep"}), nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, created.ID)

	got, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, created, got)

	errRejected := errors.New("rejected")
	_, err = repo.Create(ctx, func(int64) (domain.Alarm, error) {
		return domain.Alarm{}, errRejected
	})
	require.ErrorIs(t, err, errRejected)

	require.NoError(t, repo.Delete(ctx, 3))

	updated := want[0]
	updated.Enabled = false
	updated.Label = "Holiday"
	require.NoError(t, repo.Upsert(ctx, updated))

	got, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, updated, got)

	require.NoError(t, repo.Delete(ctx, 1))
	require.ErrorIs(t, repo.Delete(ctx, 1), ErrNotFound)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestFileRepository(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "alarms.yaml")
	repo := NewFileRepository(path)

	exerciseRepository(t, repo)
	require.NoError(t, repo.Close())

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alarms: {"), 0o600))

	_, err := NewFileRepository(path).List(context.Background())
	require.Error(t, err)
}

func TestSQLiteRepository(t *testing.T) {
	t.Parallel()

	repo, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	exerciseRepository(t, repo)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	repo, err := Open(ctx, config.StoreConfig{Driver: config.StoreDriverFile, Path: filepath.Join(dir, "a.yaml")})
	require.NoError(t, err)
	require.IsType(t, &FileRepository{}, repo)

	repo, err = Open(ctx, config.StoreConfig{Driver: config.StoreDriverSQLite, Path: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteRepository{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "redis"})
	require.ErrorIs(t, err, errUnknownDriver)
}

// exerciseConcurrentCreate creates alarms through independent repositories on
// the same store, as the CLI and the daemon do, and expects distinct ids.
func exerciseConcurrentCreate(t *testing.T, open func() (Repository, error)) {
	t.Helper()

	const writers = 8

	ctx := context.Background()
	repos := make([]Repository, writers)

	for i := range repos {
		repo, err := open()
		require.NoError(t, err)

		t.Cleanup(func() { _ = repo.Close() })

		repos[i] = repo
	}

	var wg sync.WaitGroup

	ids := make(chan int64, writers)

	for i, repo := range repos {
		wg.Add(1)

		go func() {
			defer wg.Done()

			a, err := repo.Create(ctx, func(id int64) (domain.Alarm, error) {
				a := domain.New(id, domain.TimeOfDay{Hour: 6, Minute: i}, domain.Once, domain.LocalTone{Name: "default"})
				a.Label = fmt.Sprintf("writer %d", i)

				return a, nil
			})
			assert.NoError(t, err)

			ids <- a.ID
		}()
	}

	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		require.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}

	list, err := repos[0].List(ctx)
	require.NoError(t, err)
	require.Len(t, list, writers)
}

func TestFileRepository_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarms.yaml")

	exerciseConcurrentCreate(t, func() (Repository, error) {
		return NewFileRepository(path), nil
	})
}

func TestSQLiteRepository_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarms.db")

	exerciseConcurrentCreate(t, func() (Repository, error) {
		return OpenSQLite(context.Background(), path)
	})
}

func TestSQLiteRepository_AddsMissingColumns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, strings.Replace(SchemaSQL, "\tring_seconds INTEGER NOT NULL DEFAULT 0,\n", "", 1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	a := sampleAlarms()[1]
	require.NoError(t, repo.Upsert(ctx, a))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, got.RingDuration)
}
