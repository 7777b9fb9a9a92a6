// Package sms sends dose reminders as text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("no phone number to text")

type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type TwilioClient struct {
	http       *resty.Client
	accountSID string
	from       string
	logger     *zap.Logger
}

func NewTwilioClient(baseURL, accountSID, authToken, from string, logger *zap.Logger) *TwilioClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	return &TwilioClient{
		http:       client,
		accountSID: accountSID,
		from:       from,
		logger:     logger,
	}
}

// Send texts body to the E.164 number to and returns the message SID.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}

	var out messageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": c.from,
			"Body": body,
		}).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID))
	if err != nil {
		c.logger.Error("Twilio API call failed", zap.Error(err))
		return "", fmt.Errorf("call Twilio API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Twilio API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("code", out.Code),
			zap.String("message", out.Message),
		)
		return "", fmt.Errorf("Twilio API returned status %d: %s", resp.StatusCode(), out.Message)
	}

	c.logger.Info("sms sent", zap.String("sid", out.SID), zap.String("status", out.Status))
	return out.SID, nil
}
