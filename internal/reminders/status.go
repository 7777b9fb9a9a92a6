package reminders

import (
	"errors"
	"fmt"
	"time"

	"mediminds/pkg/models"
)

var ErrInvalidTransition = errors.New("invalid reminder status transition")

// DefaultSnooze is how far a snooze pushes the scheduled time.
const DefaultSnooze = 30 * time.Minute

func invalid(r models.Reminder, to models.ReminderStatus) error {
	return fmt.Errorf("%w: %s -> %s (reminder %s)", ErrInvalidTransition, r.Status, to, r.ID)
}

// MarkSent records delivery of a due reminder. Only scheduled or snoozed
// reminders can be sent.
func MarkSent(r models.Reminder, sms, voice models.ChannelStatus) (models.Reminder, error) {
	if r.Status != models.StatusScheduled && r.Status != models.StatusSnoozed {
		return r, invalid(r, models.StatusSent)
	}
	r.Status = models.StatusSent
	r.SMSStatus = sms
	r.VoiceStatus = voice
	return r, nil
}

// MarkTaken is terminal. Confirming the dose also marks both channels as
// delivered.
func MarkTaken(r models.Reminder, now time.Time) (models.Reminder, error) {
	if r.Status.Terminal() {
		return r, invalid(r, models.StatusTaken)
	}
	taken := now
	r.Status = models.StatusTaken
	r.TakenAt = &taken
	r.SMSStatus = models.ChannelSent
	r.VoiceStatus = models.ChannelSent
	return r, nil
}

// Snooze pushes the dose back by d and returns it to the pending flow.
// Channel statuses and TakenAt are left alone.
func Snooze(r models.Reminder, d time.Duration) (models.Reminder, error) {
	if r.Status.Terminal() {
		return r, invalid(r, models.StatusSnoozed)
	}
	if d <= 0 {
		d = DefaultSnooze
	}
	r.Status = models.StatusSnoozed
	r.ScheduledTime = r.ScheduledTime.Add(d)
	return r, nil
}

func MarkMissed(r models.Reminder) (models.Reminder, error) {
	if r.Status.Terminal() {
		return r, invalid(r, models.StatusMissed)
	}
	r.Status = models.StatusMissed
	return r, nil
}

// Apply performs the transition to status requested by a caregiver.
func Apply(r models.Reminder, status models.ReminderStatus, now time.Time, snooze time.Duration) (models.Reminder, error) {
	switch status {
	case models.StatusTaken:
		return MarkTaken(r, now)
	case models.StatusSnoozed:
		return Snooze(r, snooze)
	case models.StatusMissed:
		return MarkMissed(r)
	case models.StatusSent:
		return MarkSent(r, r.SMSStatus, r.VoiceStatus)
	default:
		return r, invalid(r, status)
	}
}

// IsDue reports whether r is waiting for delivery and its time has come.
func IsDue(r models.Reminder, now time.Time) bool {
	if r.Status != models.StatusScheduled && r.Status != models.StatusSnoozed {
		return false
	}
	return !r.ScheduledTime.After(now)
}

// IsOverdue reports whether a non-terminal reminder is past its time plus
// grace. A zero grace disables missed promotion.
func IsOverdue(r models.Reminder, now time.Time, grace time.Duration) bool {
	if grace <= 0 || r.Status.Terminal() {
		return false
	}
	return now.After(r.ScheduledTime.Add(grace))
}
