package email

import (
	"errors"
	"fmt"

	"mediminds/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	fromName  string
	fromEmail string
	dialer    Dialer
	logger    *zap.Logger
}

func NewEmailService(cfg *config.Config, logger *zap.Logger) (*EmailService, error) {
	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		return nil, errors.New("SMTP credentials not configured")
	}

	dialer := gomail.NewDialer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
	)
	return NewEmailServiceWithDialer(cfg.SMTPFromName, cfg.SMTPFromEmail, dialer, logger), nil
}

func NewEmailServiceWithDialer(fromName, fromEmail string, dialer Dialer, logger *zap.Logger) *EmailService {
	return &EmailService{
		fromName:  fromName,
		fromEmail: fromEmail,
		dialer:    dialer,
		logger:    logger,
	}
}

// SendEmail sends an HTML email.
func (s *EmailService) SendEmail(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
