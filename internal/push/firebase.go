package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediminds/pkg/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

var ErrNoDeviceToken = errors.New("device token is empty")

// Sender is the part of messaging.Client used here.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FirebaseService is the voice/push channel: FCM notifications to the elder's
// device and missed-dose alerts to the caregiver's device.
type FirebaseService struct {
	client Sender
	logger *zap.Logger
}

func NewFirebaseService(client Sender, logger *zap.Logger) *FirebaseService {
	return &FirebaseService{client: client, logger: logger}
}

func doseLabel(m models.Medicine) string {
	if m.Dosage == "" {
		return m.Name
	}
	return fmt.Sprintf("%s %s", m.Name, m.Dosage)
}

func mealHint(t models.MealTiming) string {
	switch t {
	case models.MealBefore:
		return "before food"
	case models.MealWith:
		return "with food"
	default:
		return "after food"
	}
}

func doseReminderMessage(token string, elder models.Elder, m models.Medicine, r models.Reminder) *messaging.Message {
	ttl := 30 * time.Minute
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "💊 Medicine time",
			Body:  fmt.Sprintf("%s, please take %s %s.", elder.Name, doseLabel(m), mealHint(m.MealTiming)),
		},
		Data: map[string]string{
			"type":          "dose_reminder",
			"reminderId":    r.ID,
			"medicineId":    m.ID,
			"elderId":       elder.ID,
			"scheduledTime": r.ScheduledTime.Format(time.RFC3339),
			"action":        "CONFIRM_DOSE",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				Sound:        "default",
				Priority:     messaging.PriorityHigh,
				ChannelID:    "mediminds_reminders",
				DefaultSound: true,
			},
		},
	}
}

func missedDoseMessage(token string, elder models.Elder, m models.Medicine, r models.Reminder) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "⚠️ Missed dose",
			Body: fmt.Sprintf("%s has not confirmed %s scheduled at %s.",
				elder.Name, doseLabel(m), r.ScheduledTime.Format("15:04")),
		},
		Data: map[string]string{
			"type":          "missed_dose",
			"reminderId":    r.ID,
			"medicineId":    m.ID,
			"elderId":       elder.ID,
			"scheduledTime": r.ScheduledTime.Format(time.RFC3339),
			"priority":      "high",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:        "alert",
				Priority:     messaging.PriorityHigh,
				ChannelID:    "mediminds_alerts",
				DefaultSound: true,
				Color:        "#FF0000",
			},
		},
	}
}

// SendDoseReminder pushes the dose reminder to the elder's device.
func (s *FirebaseService) SendDoseReminder(ctx context.Context, token string, elder models.Elder, m models.Medicine, r models.Reminder) error {
	if token == "" {
		return ErrNoDeviceToken
	}
	response, err := s.client.Send(ctx, doseReminderMessage(token, elder, m, r))
	if err != nil {
		s.logger.Warn("dose reminder push failed",
			zap.String("reminder_id", r.ID),
			zap.Bool("invalid_token", IsInvalidTokenError(err)),
			zap.Error(err),
		)
		return fmt.Errorf("send dose reminder push: %w", err)
	}
	s.logger.Info("dose reminder push sent",
		zap.String("reminder_id", r.ID),
		zap.String("message_id", response),
	)
	return nil
}

// SendMissedDoseAlert notifies the caregiver's device that a dose was missed.
func (s *FirebaseService) SendMissedDoseAlert(ctx context.Context, token string, elder models.Elder, m models.Medicine, r models.Reminder) error {
	if token == "" {
		return ErrNoDeviceToken
	}
	response, err := s.client.Send(ctx, missedDoseMessage(token, elder, m, r))
	if err != nil {
		return fmt.Errorf("send missed dose push: %w", err)
	}
	s.logger.Info("missed dose alert sent",
		zap.String("reminder_id", r.ID),
		zap.String("message_id", response),
	)
	return nil
}

// IsInvalidTokenError reports whether FCM rejected the token itself.
func IsInvalidTokenError(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}
