package alarmrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Repository defines persistence operations for alarms.
type Repository interface {
	// Get returns the alarm with the id, or ErrNotFound.
	Get(ctx context.Context, id int64) (domain.Alarm, error)
	// Upsert inserts or replaces the alarm.
	Upsert(ctx context.Context, a domain.Alarm) error
	// Create stores a new alarm under the next free id. The id is allocated
	// and the alarm inserted atomically, also across processes.
	Create(ctx context.Context, build BuildFunc) (domain.Alarm, error)
	// List returns every alarm ordered by id.
	List(ctx context.Context) ([]domain.Alarm, error)
	// Delete removes the alarm, or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error
	// Close releases the store.
	Close() error
}

// BuildFunc returns the alarm to store under id. An error aborts Create.
type BuildFunc func(id int64) (domain.Alarm, error)

var (
	// ErrNotFound is returned when no alarm has the requested id.
	ErrNotFound = errors.New("alarm not found")
	// errUnknownDriver is returned by Open for unsupported drivers.
	errUnknownDriver = errors.New("unknown store driver")
)

// Open builds the repository selected by the store settings.
func Open(ctx context.Context, cfg config.StoreConfig) (Repository, error) {
	switch cfg.Driver {
	case config.StoreDriverFile, "":
		return NewFileRepository(cfg.Path), nil
	case config.StoreDriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, cfg.Driver)
	}
}
