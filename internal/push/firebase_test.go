package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediminds/pkg/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, m *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "projects/demo/messages/1", nil
}

var (
	elder    = models.Elder{ID: "e1", Name: "Kamala"}
	medicine = models.Medicine{ID: "m1", Name: "Metformin", Dosage: "500mg", MealTiming: models.MealBefore}
	reminder = models.Reminder{ID: "rem-m1-0-20240310", ScheduledTime: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
)

func TestSendDoseReminder(t *testing.T) {
	sender := &fakeSender{}
	svc := NewFirebaseService(sender, zap.NewNop())

	require.NoError(t, svc.SendDoseReminder(context.Background(), "tok", elder, medicine, reminder))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, "Kamala, please take Metformin 500mg before food.", msg.Notification.Body)
	assert.Equal(t, "dose_reminder", msg.Data["type"])
	assert.Equal(t, reminder.ID, msg.Data["reminderId"])
	assert.Equal(t, "2024-03-10T08:00:00Z", msg.Data["scheduledTime"])
}

func TestSendDoseReminder_Errors(t *testing.T) {
	svc := NewFirebaseService(&fakeSender{}, zap.NewNop())
	assert.ErrorIs(t, svc.SendDoseReminder(context.Background(), "", elder, medicine, reminder), ErrNoDeviceToken)

	upstream := errors.New("quota exceeded")
	svc = NewFirebaseService(&fakeSender{err: upstream}, zap.NewNop())
	assert.ErrorIs(t, svc.SendDoseReminder(context.Background(), "tok", elder, medicine, reminder), upstream)
}

func TestSendMissedDoseAlert(t *testing.T) {
	sender := &fakeSender{}
	svc := NewFirebaseService(sender, zap.NewNop())

	require.NoError(t, svc.SendMissedDoseAlert(context.Background(), "caregiver-tok", elder, medicine, reminder))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "missed_dose", sender.sent[0].Data["type"])
	assert.Contains(t, sender.sent[0].Notification.Body, "scheduled at 08:00")
}

func TestNewApp_RequiresConfiguration(t *testing.T) {
	_, err := NewApp(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
