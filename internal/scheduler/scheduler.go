package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mediminds/internal/reminders"
	"mediminds/internal/session"
	"mediminds/pkg/models"

	"go.uber.org/zap"
)

// DosePusher is the voice channel (FCM).
type DosePusher interface {
	SendDoseReminder(ctx context.Context, token string, elder models.Elder, m models.Medicine, r models.Reminder) error
	SendMissedDoseAlert(ctx context.Context, token string, elder models.Elder, m models.Medicine, r models.Reminder) error
}

// SMSSender is the SMS channel (Twilio).
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// MissedDoseMailer emails the caregiver about a missed dose.
type MissedDoseMailer interface {
	SendMissedDoseAlert(to, caregiverName string, elder models.Elder, m models.Medicine, scheduled time.Time) error
}

// SessionSource lists the sessions to scan on each tick.
type SessionSource interface {
	Sessions() []*session.Session
}

type Options struct {
	Interval          time.Duration
	MissedGracePeriod time.Duration
	Push              DosePusher
	SMS               SMSSender
	Mailer            MissedDoseMailer
	Now               func() time.Time
}

type Scheduler struct {
	sessions SessionSource
	opts     Options
	logger   *zap.Logger

	// lastTick is the end of the window already observed. Doses that became
	// overdue before it were never watched live and are closed without alerts.
	lastTick time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewScheduler(sessions SessionSource, opts Options, logger *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		sessions: sessions,
		opts:     opts,
		logger:   logger,
		lastTick: opts.Now(),
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("missed_grace", s.opts.MissedGracePeriod),
		zap.Bool("push", s.opts.Push != nil),
		zap.Bool("sms", s.opts.SMS != nil),
		zap.Bool("email", s.opts.Mailer != nil),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Tick runs one missed-dose pass followed by one dispatch pass over every
// open session, so a dose past its grace window is never announced as due.
// Ticks are not safe to run concurrently.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.opts.Now()
	since := s.lastTick
	for _, sess := range s.sessions.Sessions() {
		s.promoteMissed(ctx, sess, now, since)
		s.dispatchDue(ctx, sess, now)
	}
	s.lastTick = now
}

func (s *Scheduler) dispatchDue(ctx context.Context, sess *session.Session, now time.Time) {
	for _, r := range sess.DueReminders(now) {
		if reminders.IsOverdue(r, now, s.opts.MissedGracePeriod) {
			continue
		}
		elder, okElder := sess.Elder(r.ElderID)
		med, okMed := sess.Medicine(r.MedicineID)
		if !okElder || !okMed {
			s.logger.Warn("due reminder without elder or medicine", zap.String("reminder_id", r.ID))
			continue
		}

		voice := s.sendVoice(ctx, elder, med, r)
		sms := s.sendSMS(ctx, elder, med, r)

		if _, err := sess.MarkReminderSent(ctx, r.ID, sms, voice); err != nil {
			s.logUpdateError("mark reminder sent", r.ID, err)
			continue
		}
		s.logger.Info("dose reminder dispatched",
			zap.String("reminder_id", r.ID),
			zap.String("sms", string(sms)),
			zap.String("voice", string(voice)),
		)
	}
}

func (s *Scheduler) sendVoice(ctx context.Context, elder models.Elder, m models.Medicine, r models.Reminder) models.ChannelStatus {
	if s.opts.Push == nil || elder.DeviceToken == "" {
		return models.ChannelFailed
	}
	if err := s.opts.Push.SendDoseReminder(ctx, elder.DeviceToken, elder, m, r); err != nil {
		return models.ChannelFailed
	}
	return models.ChannelSent
}

func (s *Scheduler) sendSMS(ctx context.Context, elder models.Elder, m models.Medicine, r models.Reminder) models.ChannelStatus {
	to := elder.Phone
	if to == "" {
		to = elder.CaregiverPhone
	}
	if s.opts.SMS == nil || to == "" {
		return models.ChannelFailed
	}
	if _, err := s.opts.SMS.Send(ctx, to, DoseReminderText(elder, m, r)); err != nil {
		s.logger.Warn("dose reminder sms failed", zap.String("reminder_id", r.ID), zap.Error(err))
		return models.ChannelFailed
	}
	return models.ChannelSent
}

// DoseReminderText is the SMS body for a due dose.
func DoseReminderText(elder models.Elder, m models.Medicine, r models.Reminder) string {
	dose := m.Name
	if m.Dosage != "" {
		dose += " " + m.Dosage
	}
	return fmt.Sprintf("MediMinds: %s, it is %s. Time to take %s (%s food).",
		elder.Name, r.ScheduledTime.Format("15:04"), dose, m.MealTiming)
}

// promoteMissed marks overdue doses missed. Only doses whose grace window
// ended after since trigger the push and email alerts; older ones were due
// before the session or the scheduler was watching them.
func (s *Scheduler) promoteMissed(ctx context.Context, sess *session.Session, now, since time.Time) {
	if s.opts.MissedGracePeriod <= 0 {
		return
	}
	caregiver := sess.Caregiver()

	for _, r := range sess.OverdueReminders(now, s.opts.MissedGracePeriod) {
		missed, err := sess.MarkReminderMissed(ctx, r.ID)
		if err != nil {
			s.logUpdateError("mark reminder missed", r.ID, err)
			continue
		}
		stale := r.ScheduledTime.Add(s.opts.MissedGracePeriod).Before(since)
		s.logger.Info("dose marked missed",
			zap.String("reminder_id", missed.ID),
			zap.Time("scheduled_time", missed.ScheduledTime),
			zap.Bool("alerted", !stale),
		)
		if stale {
			continue
		}

		elder, okElder := sess.Elder(missed.ElderID)
		med, okMed := sess.Medicine(missed.MedicineID)
		if !okElder || !okMed {
			continue
		}

		if s.opts.Push != nil && elder.DeviceToken != "" {
			if err := s.opts.Push.SendMissedDoseAlert(ctx, elder.DeviceToken, elder, med, missed); err != nil {
				s.logger.Warn("missed dose push failed", zap.String("reminder_id", missed.ID), zap.Error(err))
			}
		}
		if s.opts.Mailer != nil && caregiver.Email != "" {
			if err := s.opts.Mailer.SendMissedDoseAlert(caregiver.Email, elder.PrimaryCaregiver, elder, med, missed.ScheduledTime); err != nil {
				s.logger.Warn("missed dose email failed", zap.String("reminder_id", missed.ID), zap.Error(err))
			}
		}
	}
}

// logUpdateError treats a lost race with a caregiver action as routine.
func (s *Scheduler) logUpdateError(op, reminderID string, err error) {
	if errors.Is(err, reminders.ErrInvalidTransition) || errors.Is(err, session.ErrNotFound) {
		s.logger.Debug(op+" skipped", zap.String("reminder_id", reminderID), zap.Error(err))
		return
	}
	s.logger.Error(op+" failed", zap.String("reminder_id", reminderID), zap.Error(err))
}
