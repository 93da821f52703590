package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers mail through Postmark's transactional API.
type PostmarkSender struct {
	client   *postmark.Client
	from     string
	fromName string
}

func NewPostmarkSender(serverToken, accountToken, from, fromName string) *PostmarkSender {
	return &PostmarkSender{
		client:   postmark.NewClient(serverToken, accountToken),
		from:     from,
		fromName: fromName,
	}
}

func (s *PostmarkSender) SendConfirmation(ctx context.Context, m Confirmation) error {
	body, err := renderConfirmation(m)
	if err != nil {
		return err
	}
	return s.send(ctx, m.Email, "Confirm your email", "email-confirmation", body)
}

func (s *PostmarkSender) SendPasswordReset(ctx context.Context, m PasswordReset) error {
	body, err := renderPasswordReset(m)
	if err != nil {
		return err
	}
	return s.send(ctx, m.Email, "Reset your password", "password-reset", body)
}

func (s *PostmarkSender) send(ctx context.Context, to, subject, tag, htmlBody string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     fmt.Sprintf("%s <%s>", s.fromName, s.from),
		To:       to,
		Subject:  subject,
		Tag:      tag,
		HTMLBody: htmlBody,
		Metadata: map[string]string{"message_id": uuid.NewString()},
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark send: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
