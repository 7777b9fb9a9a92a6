// Package session holds the per-caregiver application state: in-memory copies
// of the caregiver's records plus the derived reminders for the current day.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mediminds/internal/reminders"
	"mediminds/internal/services"
	"mediminds/pkg/models"

	"go.uber.org/zap"
)

// ErrNotFound is returned when an id does not belong to the caregiver.
var ErrNotFound = errors.New("not found")

// Recorder persists reminder transitions (audit log).
type Recorder interface {
	RecordReminder(ctx context.Context, userID string, r models.Reminder) error
}

// Restorer returns the last recorded state of the caregiver's reminders
// scheduled in [from, to), so a reload does not forget doses already handled.
type Restorer interface {
	RestoreReminders(ctx context.Context, userID string, from, to time.Time) ([]models.Reminder, error)
}

// Publisher receives every reminder change for live delivery to clients.
type Publisher interface {
	PublishReminder(userID string, r models.Reminder)
}

// Services are the domain services a session writes through.
type Services struct {
	Elders        *services.ElderService
	Medicines     *services.MedicineService
	Vitals        *services.VitalService
	Prescriptions *services.PrescriptionService
	CarePlan      *services.CarePlanService
	Appointments  *services.AppointmentService
}

type Options struct {
	Location  *time.Location
	Snooze    time.Duration
	Recorder  Recorder
	Restorer  Restorer
	Publisher Publisher
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Snooze <= 0 {
		o.Snooze = reminders.DefaultSnooze
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Session struct {
	svc    Services
	opts   Options
	logger *zap.Logger

	mu            sync.RWMutex
	caregiver     models.Caregiver
	loaded        bool
	day           time.Time
	elders        []models.Elder
	medicines     []models.Medicine
	vitals        []models.Vital
	prescriptions []models.Prescription
	events        []models.CarePlanEvent
	reminders     []models.Reminder
}

func New(caregiver models.Caregiver, svc Services, opts Options, logger *zap.Logger) *Session {
	return &Session{
		caregiver: caregiver,
		svc:       svc,
		opts:      opts.withDefaults(),
		logger:    logger.With(zap.String("user_id", caregiver.UserID)),
	}
}

func (s *Session) Caregiver() models.Caregiver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caregiver
}

// Day is the calendar day the current reminders were derived for.
func (s *Session) Day() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.day
}

// Load fetches the caregiver's records and derives today's reminders,
// replacing whatever the session held.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Session) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.loadLocked(ctx)
}

func (s *Session) loadLocked(ctx context.Context) error {
	elders, err := s.svc.Elders.ListByUser(ctx, s.caregiver.UserID)
	if err != nil {
		return fmt.Errorf("load elders: %w", err)
	}

	var (
		meds   []models.Medicine
		vitals []models.Vital
		rx     []models.Prescription
		events []models.CarePlanEvent
	)
	for _, e := range elders {
		m, err := s.svc.Medicines.ListByElder(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("load medicines for %s: %w", e.ID, err)
		}
		meds = append(meds, m...)

		v, err := s.svc.Vitals.ListByElder(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("load vitals for %s: %w", e.ID, err)
		}
		vitals = append(vitals, v...)

		p, err := s.svc.Prescriptions.ListByElder(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("load prescriptions for %s: %w", e.ID, err)
		}
		rx = append(rx, p...)

		ev, err := s.svc.CarePlan.ListByElder(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("load care plan for %s: %w", e.ID, err)
		}
		events = append(events, ev...)
	}

	now := s.opts.Now()
	s.elders = elders
	s.medicines = meds
	s.vitals = vitals
	s.prescriptions = rx
	s.events = events
	s.day = reminders.DayOf(now, s.opts.Location)
	s.reminders = reminders.Derive(meds, now, s.opts.Location)
	s.restoreLocked(ctx)
	s.loaded = true

	s.logger.Info("session loaded",
		zap.Int("elders", len(elders)),
		zap.Int("medicines", len(meds)),
		zap.Int("reminders", len(s.reminders)),
	)
	return nil
}

// restoreLocked overlays recorded states onto freshly derived reminders.
// Recorded reminders that no longer derive are ignored. Failures only log.
func (s *Session) restoreLocked(ctx context.Context) {
	if s.opts.Restorer == nil {
		return
	}
	// snoozes can push a dose past midnight
	from, to := s.day, s.day.AddDate(0, 0, 1).Add(12*time.Hour)
	recorded, err := s.opts.Restorer.RestoreReminders(ctx, s.caregiver.UserID, from, to)
	if err != nil {
		s.logger.Warn("failed to restore reminder states", zap.Error(err))
		return
	}

	byID := make(map[string]models.Reminder, len(recorded))
	for _, r := range recorded {
		byID[r.ID] = r
	}
	restored := 0
	for i, r := range s.reminders {
		if prev, ok := byID[r.ID]; ok {
			s.reminders[i] = prev
			restored++
		}
	}
	if restored > 0 {
		reminders.Sort(s.reminders)
		s.logger.Info("reminder states restored", zap.Int("reminders", restored))
	}
}

// Rollover re-derives reminders when the calendar day has changed since the
// last derivation. Reminders of the previous day are dropped from memory.
func (s *Session) Rollover(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded || reminders.SameDay(now, s.day, s.opts.Location) {
		return false
	}
	dropped := len(s.reminders)
	s.day = reminders.DayOf(now, s.opts.Location)
	s.reminders = reminders.Derive(s.medicines, now, s.opts.Location)

	s.logger.Info("reminders rolled over to new day",
		zap.String("day", s.day.Format(models.DateLayout)),
		zap.Int("dropped", dropped),
		zap.Int("derived", len(s.reminders)),
	)
	return true
}

func (s *Session) hasElder(elderID string) bool {
	for _, e := range s.elders {
		if e.ID == elderID {
			return true
		}
	}
	return false
}

func (s *Session) medicineIndex(id string) int {
	for i, m := range s.medicines {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) reminderIndex(id string) int {
	for i, r := range s.reminders {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// notify records and publishes reminder changes. Called without the lock.
func (s *Session) notify(ctx context.Context, changed ...models.Reminder) {
	userID := s.Caregiver().UserID
	for _, r := range changed {
		if s.opts.Recorder != nil {
			if err := s.opts.Recorder.RecordReminder(ctx, userID, r); err != nil {
				s.logger.Warn("failed to record reminder transition",
					zap.String("reminder_id", r.ID),
					zap.String("status", string(r.Status)),
					zap.Error(err),
				)
			}
		}
		if s.opts.Publisher != nil {
			s.opts.Publisher.PublishReminder(userID, r)
		}
	}
}
