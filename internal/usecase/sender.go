package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/ports"
	"ScoutNewsletter/internal/render"
)

// SenderDeps wires the driven adapters of the send flow.
type SenderDeps struct {
	Store      ports.NewsletterStore
	Recipients ports.RecipientResolver
	Mailer     ports.Mailer
	From       string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Sender delivers one stored newsletter to the recipient list.
type Sender struct {
	store      ports.NewsletterStore
	recipients ports.RecipientResolver
	mailer     ports.Mailer
	from       string
	logger     *slog.Logger
	now        func() time.Time
}

// SendReport describes a completed delivery. MarkErr is set when the email
// went out but the sent marker could not be persisted.
type SendReport struct {
	Newsletter domain.Newsletter
	Recipients int
	SentAt     time.Time
	MarkErr    error
}

// NewSender constructs the send use case.
func NewSender(deps SenderDeps) *Sender {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sender{
		store:      deps.Store,
		recipients: deps.Recipients,
		mailer:     deps.Mailer,
		from:       deps.From,
		logger:     deps.Logger,
		now:        now,
	}
}

// Send picks the record with the given id (or the newest published one, or
// the newest overall when id is empty), mails it to the sender address with
// every recipient in blind copy and stamps emailSentAt.
func (s *Sender) Send(ctx context.Context, id string) (SendReport, error) {
	if s.mailer == nil || s.from == "" {
		return SendReport{}, fmt.Errorf("%w: delivery is not configured", domain.ErrConfiguration)
	}

	recipients := s.recipients.Resolve(ctx)
	if len(recipients) == 0 {
		return SendReport{}, domain.ErrNoRecipients
	}

	list, err := s.store.Load(ctx)
	if err != nil {
		return SendReport{}, err
	}

	n, ok := Select(list, id)
	if !ok {
		if id == "" {
			return SendReport{}, fmt.Errorf("%w: the store is empty", domain.ErrNotFound)
		}
		return SendReport{}, fmt.Errorf("%w: %q", domain.ErrNotFound, id)
	}
	if n.Sent() && s.logger != nil {
		s.logger.Warn("newsletter was already sent", "id", n.ID, "email_sent_at", n.EmailSentAt.Format(time.RFC3339))
	}

	msg, err := render.Render(n)
	if err != nil {
		return SendReport{}, fmt.Errorf("render newsletter %s: %w", n.ID, err)
	}

	email := domain.Email{
		From:    s.from,
		To:      []string{s.from},
		Bcc:     recipients,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		if !errors.Is(err, domain.ErrDelivery) {
			err = fmt.Errorf("%w: %w", domain.ErrDelivery, err)
		}
		return SendReport{}, err
	}

	sentAt := s.now().UTC()
	report := SendReport{Newsletter: n, Recipients: len(recipients), SentAt: sentAt}
	if err := s.store.MarkSent(ctx, n.ID, sentAt); err != nil {
		report.MarkErr = err
		if s.logger != nil {
			s.logger.Error("failed to record sent marker", "id", n.ID, "error", err)
		}
	} else {
		report.Newsletter.EmailSentAt = &sentAt
	}

	if s.logger != nil {
		s.logger.Info("newsletter sent", "id", n.ID, "recipients", len(recipients))
	}
	return report, nil
}

// Select resolves the send target within a store-ordered list.
func Select(list []domain.Newsletter, id string) (domain.Newsletter, bool) {
	if id != "" {
		for _, n := range list {
			if n.ID == id {
				return n, true
			}
		}
		return domain.Newsletter{}, false
	}

	for _, n := range list {
		if n.Published() {
			return n, true
		}
	}
	if len(list) > 0 {
		return list[0], true
	}
	return domain.Newsletter{}, false
}
