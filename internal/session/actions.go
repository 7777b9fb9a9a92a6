package session

import (
	"context"
	"fmt"
	"time"

	"mediminds/internal/reminders"
	"mediminds/pkg/models"
)

func (s *Session) transition(ctx context.Context, reminderID string, fn func(models.Reminder) (models.Reminder, error)) (models.Reminder, error) {
	s.mu.Lock()
	idx := s.reminderIndex(reminderID)
	if idx < 0 {
		s.mu.Unlock()
		return models.Reminder{}, fmt.Errorf("reminder %s: %w", reminderID, ErrNotFound)
	}
	next, err := fn(s.reminders[idx])
	if err != nil {
		s.mu.Unlock()
		return models.Reminder{}, err
	}
	s.reminders[idx] = next
	if next.Status == models.StatusSnoozed {
		reminders.Sort(s.reminders)
	}
	s.mu.Unlock()

	s.notify(ctx, next)
	return next, nil
}

// UpdateReminderStatus applies a caregiver-requested status change.
func (s *Session) UpdateReminderStatus(ctx context.Context, reminderID string, status models.ReminderStatus) (models.Reminder, error) {
	return s.transition(ctx, reminderID, func(r models.Reminder) (models.Reminder, error) {
		return reminders.Apply(r, status, s.opts.Now(), s.opts.Snooze)
	})
}

func (s *Session) SnoozeReminder(ctx context.Context, reminderID string) (models.Reminder, error) {
	return s.transition(ctx, reminderID, func(r models.Reminder) (models.Reminder, error) {
		return reminders.Snooze(r, s.opts.Snooze)
	})
}

// MarkReminderSent records the outcome of a dispatch attempt.
func (s *Session) MarkReminderSent(ctx context.Context, reminderID string, sms, voice models.ChannelStatus) (models.Reminder, error) {
	return s.transition(ctx, reminderID, func(r models.Reminder) (models.Reminder, error) {
		return reminders.MarkSent(r, sms, voice)
	})
}

func (s *Session) MarkReminderMissed(ctx context.Context, reminderID string) (models.Reminder, error) {
	return s.transition(ctx, reminderID, reminders.MarkMissed)
}

// DueReminders lists reminders waiting for delivery at now.
func (s *Session) DueReminders(now time.Time) []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Reminder
	for _, r := range s.reminders {
		if reminders.IsDue(r, now) {
			out = append(out, r)
		}
	}
	return out
}

// OverdueReminders lists non-terminal reminders past their time plus grace.
func (s *Session) OverdueReminders(now time.Time, grace time.Duration) []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Reminder
	for _, r := range s.reminders {
		if reminders.IsOverdue(r, now, grace) {
			out = append(out, r)
		}
	}
	return out
}
