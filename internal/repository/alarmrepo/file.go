package alarmrepo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// lockRetryDelay is how often a writer retries a held store lock.
const lockRetryDelay = 10 * time.Millisecond

// FileRepository persists alarms to a YAML file on disk.
// Every write replaces the whole document through a temporary file,
// so a crash never leaves a half-written store behind. Writers also hold
// an OS lock on <path>.lock, which serializes the CLI and the daemon.
type FileRepository struct {
	// path is the filesystem location of the YAML store.
	path string
	// lock is the cross-process write lock.
	lock *flock.Flock
	// mu protects concurrent access to the store file.
	mu sync.Mutex
}

// fileDocument is the top-level YAML layout.
type fileDocument struct {
	Alarms []alarmRecord `yaml:"alarms"`
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	path = filepath.Clean(path)

	return &FileRepository{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Get implements Repository.
func (r *FileRepository) Get(_ context.Context, id int64) (domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return domain.Alarm{}, err
	}

	for _, rec := range doc.Alarms {
		if rec.ID == id {
			return fromRecord(rec)
		}
	}

	return domain.Alarm{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Upsert implements Repository.
func (r *FileRepository) Upsert(ctx context.Context, a domain.Alarm) error {
	return r.update(ctx, func(doc *fileDocument) error {
		rec := toRecord(a)

		idx := slices.IndexFunc(doc.Alarms, func(x alarmRecord) bool { return x.ID == a.ID })
		if idx >= 0 {
			doc.Alarms[idx] = rec
		} else {
			doc.Alarms = append(doc.Alarms, rec)
		}

		return nil
	})
}

// Create implements Repository.
func (r *FileRepository) Create(ctx context.Context, build BuildFunc) (domain.Alarm, error) {
	var created domain.Alarm

	err := r.update(ctx, func(doc *fileDocument) error {
		var maxID int64

		for _, rec := range doc.Alarms {
			maxID = max(maxID, rec.ID)
		}

		a, err := build(maxID + 1)
		if err != nil {
			return err
		}

		a.ID = maxID + 1
		doc.Alarms = append(doc.Alarms, toRecord(a))
		created = a

		return nil
	})
	if err != nil {
		return domain.Alarm{}, err
	}

	return created, nil
}

// List implements Repository.
func (r *FileRepository) List(_ context.Context) ([]domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}

	alarms := make([]domain.Alarm, 0, len(doc.Alarms))

	for _, rec := range doc.Alarms {
		a, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}

		alarms = append(alarms, a)
	}

	slices.SortFunc(alarms, func(x, y domain.Alarm) int { return cmp.Compare(x.ID, y.ID) })

	return alarms, nil
}

// Delete implements Repository.
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	return r.update(ctx, func(doc *fileDocument) error {
		idx := slices.IndexFunc(doc.Alarms, func(x alarmRecord) bool { return x.ID == id })
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}

		doc.Alarms = slices.Delete(doc.Alarms, idx, idx+1)

		return nil
	})
}

// Close implements Repository.
func (r *FileRepository) Close() error {
	return nil
}

// update applies fn to the stored document and writes it back while holding
// the process mutex and the store's file lock. Nothing is written when fn fails.
func (r *FileRepository) update(ctx context.Context, fn func(doc *fileDocument) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureDir(); err != nil {
		return err
	}

	locked, err := r.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock alarm store: %w", err)
	}

	if !locked {
		return fmt.Errorf("lock alarm store: %w", ctx.Err())
	}

	defer func() {
		_ = r.lock.Unlock()
	}()

	doc, err := r.read()
	if err != nil {
		return err
	}

	if err = fn(doc); err != nil {
		return err
	}

	return r.write(doc)
}

func (r *FileRepository) ensureDir() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	return nil
}

// read loads the document; a missing file is an empty store.
func (r *FileRepository) read() (*fileDocument, error) {
	doc := new(fileDocument)

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}

		return nil, fmt.Errorf("read alarm store: %w", err)
	}

	if err = yaml.Unmarshal(contents, doc); err != nil {
		return nil, fmt.Errorf("decode alarm store: %w", err)
	}

	return doc, nil
}

func (r *FileRepository) write(doc *fileDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode alarm store: %w", err)
	}

	tmp := r.path + ".tmp"

	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write alarm store: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace alarm store: %w", err)
	}

	return nil
}
