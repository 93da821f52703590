package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender is the development fallback used when no Postmark token is
// configured. It logs the mail instead of delivering it.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendConfirmation(_ context.Context, m Confirmation) error {
	logrus.WithFields(logrus.Fields{
		"to":   m.Email,
		"link": m.Link(),
	}).Info("confirmation email (dev sender)")
	return nil
}

func (s *LogSender) SendPasswordReset(_ context.Context, m PasswordReset) error {
	logrus.WithFields(logrus.Fields{
		"to":    m.Email,
		"token": m.Token,
	}).Info("password reset email (dev sender)")
	return nil
}
