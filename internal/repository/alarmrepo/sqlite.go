package alarmrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

const selectColumns = `id, label, time_of_day, days, timezone, start_date,
	audio_kind, audio_tone, audio_uri, audio_start_offset_ms,
	snooze_minutes, volume_ramp_minutes, vibration_enabled, enabled, volume, ring_seconds`

// dsnOptions make write transactions take the database lock up front and wait
// for a lock held by another process instead of failing at once.
const dsnOptions = "?_busy_timeout=5000&_txlock=immediate"

// SQLiteRepository persists alarms in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	repo, err := NewSQLiteRepository(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return repo, nil
}

// NewSQLiteRepository wraps an open database and applies the schema.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.ExecContext(ctx, SchemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := migrateColumns(ctx, db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

// migrateColumns adds the columns a database created by an older build lacks.
func migrateColumns(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info('alarms')")
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}

		existing[name] = true
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	// Release the connection before altering the table.
	_ = rows.Close()

	for _, m := range columnMigrations {
		if existing[m.column] {
			continue
		}

		if _, err = db.ExecContext(ctx, "ALTER TABLE alarms ADD COLUMN "+m.column+" "+m.definition); err != nil {
			return fmt.Errorf("failed to add column %s: %w", m.column, err)
		}
	}

	return nil
}

// Get implements Repository.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (domain.Alarm, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM alarms WHERE id = ?", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alarm{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if err != nil {
		return domain.Alarm{}, fmt.Errorf("failed to get alarm: %w", err)
	}

	return fromRecord(rec)
}

// Upsert implements Repository.
func (r *SQLiteRepository) Upsert(ctx context.Context, a domain.Alarm) error {
	rec := toRecord(a)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			time_of_day = excluded.time_of_day,
			days = excluded.days,
			timezone = excluded.timezone,
			start_date = excluded.start_date,
			audio_kind = excluded.audio_kind,
			audio_tone = excluded.audio_tone,
			audio_uri = excluded.audio_uri,
			audio_start_offset_ms = excluded.audio_start_offset_ms,
			snooze_minutes = excluded.snooze_minutes,
			volume_ramp_minutes = excluded.volume_ramp_minutes,
			vibration_enabled = excluded.vibration_enabled,
			enabled = excluded.enabled,
			volume = excluded.volume,
			ring_seconds = excluded.ring_seconds,
			updated_at = CURRENT_TIMESTAMP`,
		rec.ID, rec.Label, rec.Time, rec.Days, rec.Timezone, rec.StartDate,
		rec.Audio.Kind, rec.Audio.Tone, rec.Audio.URI, rec.Audio.StartOffsetMS,
		rec.SnoozeMinutes, rec.VolumeRampMinutes, rec.VibrationEnabled, rec.Enabled, rec.Volume,
		rec.RingSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert alarm: %w", err)
	}

	return nil
}

// Create implements Repository. The id is read and the row inserted in one
// immediate transaction, so concurrent writers queue on the database lock.
func (r *SQLiteRepository) Create(ctx context.Context, build BuildFunc) (domain.Alarm, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	if err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM alarms").Scan(&id); err != nil {
		return domain.Alarm{}, fmt.Errorf("failed to allocate alarm id: %w", err)
	}

	a, err := build(id)
	if err != nil {
		return domain.Alarm{}, err
	}

	a.ID = id
	rec := toRecord(a)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alarms (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Label, rec.Time, rec.Days, rec.Timezone, rec.StartDate,
		rec.Audio.Kind, rec.Audio.Tone, rec.Audio.URI, rec.Audio.StartOffsetMS,
		rec.SnoozeMinutes, rec.VolumeRampMinutes, rec.VibrationEnabled, rec.Enabled, rec.Volume,
		rec.RingSeconds,
	)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("failed to insert alarm: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Alarm{}, fmt.Errorf("failed to commit alarm: %w", err)
	}

	return a, nil
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context) ([]domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM alarms ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list alarms: %w", err)
	}
	defer rows.Close()

	var alarms []domain.Alarm

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}

		a, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}

		alarms = append(alarms, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list alarms: %w", err)
	}

	return alarms, nil
}

// Delete implements Repository.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return nil
}

// Close implements Repository.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (alarmRecord, error) {
	var rec alarmRecord

	err := s.Scan(
		&rec.ID, &rec.Label, &rec.Time, &rec.Days, &rec.Timezone, &rec.StartDate,
		&rec.Audio.Kind, &rec.Audio.Tone, &rec.Audio.URI, &rec.Audio.StartOffsetMS,
		&rec.SnoozeMinutes, &rec.VolumeRampMinutes, &rec.VibrationEnabled, &rec.Enabled, &rec.Volume,
		&rec.RingSeconds,
	)

	return rec, err
}
