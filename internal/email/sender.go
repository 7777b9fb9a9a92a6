package email

import (
	"errors"
	"fmt"
	"time"

	"mediminds/pkg/models"

	"go.uber.org/zap"
)

// SendMissedDoseAlert tells the caregiver a dose was not confirmed in time.
func (s *EmailService) SendMissedDoseAlert(to, caregiverName string, elder models.Elder, m models.Medicine, scheduled time.Time) error {
	if to == "" {
		return errors.New("caregiver email is empty")
	}
	if caregiverName == "" {
		caregiverName = "there"
	}

	subject := fmt.Sprintf("⚠️ Missed dose - %s", elder.Name)
	htmlBody := MissedDoseAlertTemplate(caregiverName, elder.Name, medicineLabel(m), scheduled)

	if err := s.SendEmail(to, subject, htmlBody); err != nil {
		s.logger.Error("failed to send missed dose email",
			zap.String("elder_id", elder.ID),
			zap.String("medicine_id", m.ID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("missed dose email sent",
		zap.String("elder_id", elder.ID),
		zap.String("medicine_id", m.ID),
	)
	return nil
}

func medicineLabel(m models.Medicine) string {
	if m.Dosage == "" {
		return m.Name
	}
	return m.Name + " " + m.Dosage
}
