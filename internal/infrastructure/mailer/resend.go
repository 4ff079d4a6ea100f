package mailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/ports"
)

// Resend delivers emails through the Resend API.
type Resend struct {
	client *resend.Client
}

var _ ports.Mailer = (*Resend)(nil)

// NewResend builds a mailer from delivery configuration. baseURL overrides the
// API host when non-empty.
func NewResend(cfg config.DeliveryConfig, baseURL string) (*Resend, error) {
	client := resend.NewClient(cfg.APIKey)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid resend base url %s: %w", baseURL, err)
		}
		client.BaseURL = u
	}
	return &Resend{client: client}, nil
}

// Send performs exactly one delivery call; there is no retry.
func (r *Resend) Send(ctx context.Context, email domain.Email) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("%w: resend mailer misconfigured", domain.ErrDelivery)
	}

	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Bcc:     email.Bcc,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return fmt.Errorf("%w: resend: %w", domain.ErrDelivery, err)
	}
	return nil
}
