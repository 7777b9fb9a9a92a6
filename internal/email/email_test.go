package email

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"mediminds/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSendMissedDoseAlert(t *testing.T) {
	dialer := &fakeDialer{}
	svc := NewEmailServiceWithDialer("MediMinds", "alerts@mediminds.local", dialer, zap.NewNop())

	elder := models.Elder{ID: "e1", Name: "Kamala"}
	med := models.Medicine{ID: "m1", Name: "Metformin", Dosage: "500mg"}
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, svc.SendMissedDoseAlert("rahul@example.com", "Rahul", elder, med, at))
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	assert.Equal(t, []string{"rahul@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"⚠️ Missed dose - Kamala"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestSendMissedDoseAlert_Errors(t *testing.T) {
	svc := NewEmailServiceWithDialer("MediMinds", "alerts@mediminds.local", &fakeDialer{err: errors.New("smtp down")}, zap.NewNop())

	err := svc.SendMissedDoseAlert("", "Rahul", models.Elder{}, models.Medicine{}, time.Now())
	assert.Error(t, err)

	err = svc.SendMissedDoseAlert("rahul@example.com", "Rahul", models.Elder{Name: "Kamala"}, models.Medicine{Name: "X"}, time.Now())
	assert.ErrorContains(t, err, "smtp down")
}

func TestMissedDoseAlertTemplate_EscapesNames(t *testing.T) {
	body := MissedDoseAlertTemplate("Rahul", "<script>", "Dolo 650mg", time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "Dolo 650mg")
	assert.Contains(t, body, "10 Mar 2024 20:00")
}
