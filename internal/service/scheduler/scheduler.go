package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/observability/metrics"
	"github.com/oshokin/alarm-clock/internal/recurrence"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
	"github.com/oshokin/alarm-clock/internal/waketimer"
)

// Repository is the part of the alarm store the scheduler reads.
type Repository interface {
	Get(ctx context.Context, id int64) (domain.Alarm, error)
}

// Timer is the platform timer the scheduler programs.
type Timer interface {
	Arm(alarmID int64, at time.Time) (waketimer.Handle, error)
	Cancel(h waketimer.Handle) error
}

// Dispatcher receives every fired alarm. Dispatch must return promptly.
type Dispatcher interface {
	Dispatch(ctx context.Context, a domain.Alarm)
}

// Escalator is told about alarms that could not be armed.
type Escalator interface {
	Escalate(ctx context.Context, alarmID int64, err error)
}

// Registration is the live wake-up of one alarm.
type Registration struct {
	// AlarmID is the alarm the registration belongs to.
	AlarmID int64
	// At is the absolute instant the alarm is due.
	At time.Time
	// Handle identifies the registration in the timer.
	Handle waketimer.Handle
}

// Warning is a persistent record of a scheduling failure.
type Warning struct {
	// AlarmID is the affected alarm.
	AlarmID int64
	// Err describes the failure.
	Err string
	// At is when the failure was recorded.
	At time.Time
}

// manualKey marks contexts of fires requested by a user.
type manualKey struct{}

// WithManualTrigger marks ctx as a fire requested by a user rather than the timer.
func WithManualTrigger(ctx context.Context) context.Context {
	return context.WithValue(ctx, manualKey{}, true)
}

// IsManualTrigger reports whether ctx was marked by WithManualTrigger.
func IsManualTrigger(ctx context.Context) bool {
	manual, _ := ctx.Value(manualKey{}).(bool)

	return manual
}

// Scheduler owns the mapping from alarm id to its single live registration.
type Scheduler struct {
	repo       Repository
	timer      Timer
	dispatcher Dispatcher
	escalator  Escalator
	metrics    *metrics.Metrics
	now        func() time.Time
	location   *time.Location
	newBackOff func() backoff.BackOff

	// mu guards the maps below, never held across timer or repository calls.
	mu            sync.Mutex
	locks         map[int64]*sync.Mutex
	registrations map[int64]Registration
	warnings      map[int64]Warning
}

// New creates a scheduler reading alarms from repo and programming timer.
func New(repo Repository, timer Timer, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:          repo,
		timer:         timer,
		now:           time.Now,
		location:      time.Local,
		locks:         make(map[int64]*sync.Mutex),
		registrations: make(map[int64]Registration),
		warnings:      make(map[int64]Warning),
	}

	WithRetryMaxElapsed(defaultRetryMaxElapsed)(s)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Schedule arms the next occurrence of the alarm, replacing any live
// registration for its id. Disabled alarms are left untouched.
// It returns the armed instant.
func (s *Scheduler) Schedule(ctx context.Context, a domain.Alarm) (time.Time, error) {
	if !a.Enabled {
		return time.Time{}, nil
	}

	unlock := s.lockAlarm(a.ID)
	defer unlock()

	at := recurrence.NextTriggerIn(a, s.now(), s.location)
	ctx = logger.WithKV(ctx, "alarm_id", a.ID)

	if err := s.cancelLocked(a.ID); err != nil {
		return time.Time{}, s.fail(ctx, a.ID, err)
	}

	handle, err := backoff.RetryWithData(func() (waketimer.Handle, error) {
		h, err := s.timer.Arm(a.ID, at)
		if errors.Is(err, waketimer.ErrClosed) {
			return 0, backoff.Permanent(err)
		}

		if err != nil {
			logger.WarnKV(ctx, "Arming failed, retrying", "error", err)
		}

		return h, err
	}, backoff.WithContext(s.newBackOff(), ctx))
	if err != nil {
		return time.Time{}, s.fail(ctx, a.ID, fmt.Errorf("arm: %w", err))
	}

	s.mu.Lock()
	s.registrations[a.ID] = Registration{AlarmID: a.ID, At: at, Handle: handle}
	delete(s.warnings, a.ID)
	armed := len(s.registrations)
	s.mu.Unlock()

	s.metrics.SetArmed(armed)
	logger.InfoKV(ctx, "Alarm armed", "at", at.Format(time.RFC3339), "label", a.DisplayLabel())

	return at, nil
}

// Cancel removes the alarm's live registration. Unknown ids are not an error.
func (s *Scheduler) Cancel(ctx context.Context, alarmID int64) error {
	unlock := s.lockAlarm(alarmID)
	defer unlock()

	if err := s.cancelLocked(alarmID); err != nil {
		return fmt.Errorf("cancel alarm %d: %w", alarmID, err)
	}

	s.mu.Lock()
	delete(s.warnings, alarmID)
	s.mu.Unlock()

	logger.DebugKV(ctx, "Alarm cancelled", "alarm_id", alarmID)

	return nil
}

// HandleFire is the timer's callback. Registrations replaced or cancelled
// after the timer popped them are ignored.
func (s *Scheduler) HandleFire(ctx context.Context, alarmID int64, handle waketimer.Handle) {
	unlock := s.lockAlarm(alarmID)

	s.mu.Lock()
	reg, ok := s.registrations[alarmID]
	current := ok && reg.Handle == handle

	if current {
		delete(s.registrations, alarmID)
	}

	armed := len(s.registrations)
	s.mu.Unlock()

	unlock()

	if !current {
		logger.DebugKV(ctx, "Stale wake-up ignored", "alarm_id", alarmID, "handle", handle)

		return
	}

	s.metrics.SetArmed(armed)

	if err := s.OnFired(ctx, alarmID); err != nil {
		logger.ErrorKV(ctx, "Alarm fire handling failed", "alarm_id", alarmID, "error", err)
	}
}

// OnFired loads the alarm, dispatches it and arms the next occurrence of a
// recurring alarm. A missing alarm is logged and otherwise ignored, and so is
// an alarm disabled after it was armed unless a user fired it by hand.
func (s *Scheduler) OnFired(ctx context.Context, alarmID int64) error {
	ctx = logger.WithKV(ctx, "alarm_id", alarmID)

	a, err := backoff.RetryWithData(func() (domain.Alarm, error) {
		a, err := s.repo.Get(ctx, alarmID)
		if errors.Is(err, alarmrepo.ErrNotFound) {
			return a, backoff.Permanent(err)
		}

		return a, err
	}, backoff.WithContext(s.newBackOff(), ctx))

	switch {
	case errors.Is(err, alarmrepo.ErrNotFound):
		s.metrics.TriggerFired(metrics.KindMissing)
		logger.WarnKV(ctx, "Fired alarm no longer exists")

		return nil
	case err != nil:
		return s.fail(ctx, alarmID, fmt.Errorf("load: %w", err))
	}

	if !a.Enabled && !IsManualTrigger(ctx) {
		s.metrics.TriggerFired(metrics.KindDisabled)
		logger.InfoKV(ctx, "Fired alarm is disabled, not ringing", "label", a.DisplayLabel())

		return nil
	}

	kind := metrics.KindRecurring

	switch {
	case IsManualTrigger(ctx):
		kind = metrics.KindManual
	case a.Recurrence.IsOneShot():
		kind = metrics.KindOneShot
	}

	s.metrics.TriggerFired(kind)
	logger.InfoKV(ctx, "Alarm fired", "label", a.DisplayLabel(), "audio", domain.Describe(a.Audio))

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, a.Clone())
	}

	if a.Recurrence.IsOneShot() {
		return nil
	}

	_, err = s.Schedule(ctx, a)

	return err
}

// ScheduleAll arms every enabled alarm and joins the failures.
func (s *Scheduler) ScheduleAll(ctx context.Context, alarms []domain.Alarm) error {
	var errs []error

	for _, a := range alarms {
		if _, err := s.Schedule(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// registration returns the live registration of the alarm, if any.
func (s *Scheduler) registration(alarmID int64) (Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[alarmID]

	return reg, ok
}

// Registrations returns every live registration ordered by alarm id.
func (s *Scheduler) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := make([]Registration, 0, len(s.registrations))
	for _, reg := range s.registrations {
		regs = append(regs, reg)
	}

	slices.SortFunc(regs, func(a, b Registration) int { return cmp.Compare(a.AlarmID, b.AlarmID) })

	return regs
}

// Warnings returns the unresolved scheduling failures ordered by alarm id.
func (s *Scheduler) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings := make([]Warning, 0, len(s.warnings))
	for _, w := range s.warnings {
		warnings = append(warnings, w)
	}

	slices.SortFunc(warnings, func(a, b Warning) int { return cmp.Compare(a.AlarmID, b.AlarmID) })

	return warnings
}

// cancelLocked cancels the live registration. The caller holds the alarm lock.
func (s *Scheduler) cancelLocked(alarmID int64) error {
	s.mu.Lock()
	reg, ok := s.registrations[alarmID]
	s.mu.Unlock()

	if !ok {
		return nil
	}

	if err := s.timer.Cancel(reg.Handle); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.registrations, alarmID)
	armed := len(s.registrations)
	s.mu.Unlock()

	s.metrics.SetArmed(armed)

	return nil
}

// fail records, counts and escalates a scheduling failure.
func (s *Scheduler) fail(ctx context.Context, alarmID int64, err error) error {
	serr := &SchedulingError{AlarmID: alarmID, Err: err}

	s.mu.Lock()
	s.warnings[alarmID] = Warning{AlarmID: alarmID, Err: serr.Error(), At: s.now()}
	s.mu.Unlock()

	s.metrics.SchedulingFailed()
	logger.ErrorKV(ctx, "Alarm could not be scheduled, it will not ring", "error", err)

	if s.escalator != nil {
		s.escalator.Escalate(ctx, alarmID, serr)
	}

	return serr
}

// lockAlarm serializes cancel-then-arm for one alarm id.
func (s *Scheduler) lockAlarm(alarmID int64) func() {
	s.mu.Lock()

	l, ok := s.locks[alarmID]
	if !ok {
		l = new(sync.Mutex)
		s.locks[alarmID] = l
	}

	s.mu.Unlock()

	l.Lock()

	return l.Unlock
}
