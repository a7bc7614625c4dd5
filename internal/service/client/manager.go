package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/recurrence"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
	"github.com/oshokin/alarm-clock/internal/service/common"
	"github.com/oshokin/alarm-clock/internal/service/scheduler"
)

// ErrDaemonUnavailable is returned by operations that need a running daemon.
var ErrDaemonUnavailable = errors.New("alarm-clock daemon is not running")

// Daemon is the control surface of a running daemon.
type Daemon interface {
	Reschedule(ctx context.Context, alarmID int64) (time.Time, error)
	Cancel(ctx context.Context, alarmID int64) error
	Trigger(ctx context.Context, alarmID int64) error
	StopPlayback(ctx context.Context) error
	Status(ctx context.Context) (api.Status, error)
}

// AddRequest describes a new alarm.
type AddRequest struct {
	Label             string
	Time              domain.TimeOfDay
	Recurrence        domain.Recurrence
	Timezone          string
	StartDate         domain.Date
	Audio             domain.AudioPreference
	VolumeRampMinutes int
	SnoozeMinutes     int
	VibrationEnabled  bool
	Disabled          bool

	// Volume is the playback volume; nil means domain.DefaultVolume.
	Volume *float64
	// RingDuration is how long the alarm sounds; zero means the daemon default.
	RingDuration time.Duration
}

// Entry is one row of the alarm listing.
type Entry struct {
	// Alarm is the stored alarm.
	Alarm domain.Alarm
	// NextTrigger is the computed next occurrence; zero for disabled alarms.
	NextTrigger time.Time
	// Armed is true when the daemon holds a live wake-up for the alarm.
	Armed bool
	// Warning is the daemon's scheduling failure for the alarm, if any.
	Warning string
}

// Listing is the result of List.
type Listing struct {
	// Entries are ordered by alarm id.
	Entries []Entry
	// DaemonRunning is true when the daemon answered the status request.
	DaemonRunning bool
	// Playback is the daemon playback state when DaemonRunning is set.
	Playback api.PlaybackStatus
}

// Manager runs the CLI use cases.
type Manager struct {
	repo     alarmrepo.Repository
	daemon   Daemon
	location *time.Location
	now      func() time.Time
}

// NewManager creates a manager. A nil daemon means the daemon is never contacted.
func NewManager(repo alarmrepo.Repository, daemon Daemon, location *time.Location) *Manager {
	if location == nil {
		location = time.Local
	}

	return &Manager{
		repo:     repo,
		daemon:   daemon,
		location: location,
		now:      time.Now,
	}
}

// Open builds a manager from the configuration: it opens the repository and
// prepares a lazy connection to the daemon. The returned function releases both.
func Open(ctx context.Context, cfg *config.Config) (*Manager, func(), error) {
	repo, err := alarmrepo.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open alarm store: %w", err)
	}

	conn, err := common.Dial(ctx, cfg.Control.Address, common.WithCallTimeout(cfg.Control.Timeout))
	if err != nil {
		_ = repo.Close()

		return nil, nil, err
	}

	release := func() {
		_ = conn.Close()
		_ = repo.Close()
	}

	return NewManager(repo, conn, cfg.Location()), release, nil
}

// Add stores a new alarm with the next free id and arms it in the daemon.
func (m *Manager) Add(ctx context.Context, req AddRequest) (domain.Alarm, error) {
	a, err := m.repo.Create(ctx, req.build)
	if err != nil {
		return domain.Alarm{}, fmt.Errorf("add alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm added", "alarm_id", a.ID, "time", a.Time.String(), "repeat", a.Recurrence.String())

	return a, m.reschedule(ctx, a.ID)
}

// build turns the request into a valid alarm with the given id.
func (req AddRequest) build(id int64) (domain.Alarm, error) {
	a := domain.New(id, req.Time, req.Recurrence, req.Audio)
	a.Label = req.Label
	a.Timezone = req.Timezone
	a.StartDate = req.StartDate
	a.VolumeRampMinutes = req.VolumeRampMinutes
	a.VibrationEnabled = req.VibrationEnabled
	a.Enabled = !req.Disabled
	a.RingDuration = req.RingDuration

	if req.Volume != nil {
		a.Volume = *req.Volume
	}

	if req.SnoozeMinutes > 0 {
		a.SnoozeMinutes = req.SnoozeMinutes
	}

	return a, a.Validate()
}

// List returns every alarm with its next occurrence and, when the daemon is
// reachable, whether it is armed.
func (m *Manager) List(ctx context.Context) (Listing, error) {
	alarms, err := m.repo.List(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("list alarms: %w", err)
	}

	var result Listing

	armed := make(map[int64]bool)
	warnings := make(map[int64]string)

	if m.daemon != nil {
		st, statusErr := m.daemon.Status(ctx)
		switch {
		case statusErr == nil:
			result.DaemonRunning = true
			result.Playback = st.Playback

			for _, a := range st.Armed {
				armed[a.AlarmID] = true
			}

			for _, w := range st.Warnings {
				warnings[w.AlarmID] = w.Error
			}
		case common.IsUnavailable(statusErr):
			logger.DebugKV(ctx, "Daemon is not running", "error", statusErr)
		default:
			logger.WarnKV(ctx, "Daemon status request failed", "error", statusErr)
		}
	}

	now := m.now()
	result.Entries = make([]Entry, 0, len(alarms))

	for _, a := range alarms {
		entry := Entry{
			Alarm:   a,
			Armed:   armed[a.ID],
			Warning: warnings[a.ID],
		}

		if a.Enabled {
			entry.NextTrigger = recurrence.NextTriggerIn(a, now, m.location)
		}

		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// SetEnabled enables or disables an alarm and updates the daemon.
func (m *Manager) SetEnabled(ctx context.Context, id int64, enabled bool) (domain.Alarm, error) {
	a, err := m.repo.Get(ctx, id)
	if err != nil {
		return domain.Alarm{}, err
	}

	if a.Enabled != enabled {
		a.Enabled = enabled

		if err = m.repo.Upsert(ctx, a); err != nil {
			return domain.Alarm{}, fmt.Errorf("save alarm %d: %w", id, err)
		}
	}

	logger.InfoKV(ctx, "Alarm updated", "alarm_id", id, "enabled", enabled)

	return a, m.reschedule(ctx, id)
}

// Remove deletes an alarm and drops its wake-up.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Alarm removed", "alarm_id", id)

	if m.daemon == nil {
		return nil
	}

	return m.tolerateOffline(ctx, m.daemon.Cancel(ctx, id))
}

// Trigger fires the alarm in the running daemon.
func (m *Manager) Trigger(ctx context.Context, id int64) error {
	if _, err := m.repo.Get(ctx, id); err != nil {
		return err
	}

	if m.daemon == nil {
		return ErrDaemonUnavailable
	}

	err := m.daemon.Trigger(ctx, id)
	if common.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	return err
}

// StopPlayback silences the running daemon.
func (m *Manager) StopPlayback(ctx context.Context) error {
	if m.daemon == nil {
		return ErrDaemonUnavailable
	}

	err := m.daemon.StopPlayback(ctx)
	if common.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	return err
}

// reschedule tells the daemon to re-read the alarm. A scheduling failure is
// returned so the caller sees that the alarm will not ring.
func (m *Manager) reschedule(ctx context.Context, id int64) error {
	if m.daemon == nil {
		return nil
	}

	at, err := m.daemon.Reschedule(ctx, id)
	if err != nil {
		if errors.Is(err, scheduler.ErrSchedulingFailure) {
			logger.ErrorKV(ctx, "Daemon could not arm the alarm", "alarm_id", id, "error", err)

			return err
		}

		return m.tolerateOffline(ctx, err)
	}

	if !at.IsZero() {
		logger.InfoKV(ctx, "Alarm armed", "alarm_id", id, "at", at.In(m.location).Format(time.RFC3339))
	}

	return nil
}

// tolerateOffline swallows errors caused by an absent daemon.
func (m *Manager) tolerateOffline(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if common.IsUnavailable(err) {
		logger.Info(ctx, "Daemon is not running, the change applies on its next start")

		return nil
	}

	return err
}
