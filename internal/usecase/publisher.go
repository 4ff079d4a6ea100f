package usecase

import (
	"context"
	"log/slog"
	"time"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/normalize"
	"ScoutNewsletter/internal/ports"
)

// PublishOptions tweaks how a payload is stored.
type PublishOptions struct {
	// Promote forces the stored record to the published status.
	Promote bool
}

// Publisher normalizes externally edited payloads and upserts them.
type Publisher struct {
	store      ports.NewsletterStore
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewPublisher constructs the publish use case.
func NewPublisher(store ports.NewsletterStore, normalizer *normalize.Normalizer, logger *slog.Logger, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	if normalizer == nil {
		normalizer = normalize.New(now)
	}
	return &Publisher{store: store, normalizer: normalizer, logger: logger, now: now}
}

// Publish upserts the payload by id. A stored email-sent marker is kept so a
// re-publish never re-arms delivery, and an existing publishedAt survives
// when the payload does not carry one.
func (p *Publisher) Publish(ctx context.Context, payload any, opts PublishOptions) (domain.Newsletter, error) {
	n := p.normalizer.Newsletter(payload)
	if opts.Promote {
		n.Status = domain.StatusPublished
	}

	list, err := p.store.Load(ctx)
	if err != nil {
		return domain.Newsletter{}, err
	}

	var existing *domain.Newsletter
	for i := range list {
		if list[i].ID == n.ID {
			existing = &list[i]
			break
		}
	}

	n.EmailSentAt = nil
	if existing != nil {
		n.EmailSentAt = existing.EmailSentAt
	}

	if n.Published() {
		obj, _ := payload.(map[string]any)
		supplied := normalize.Timestamp(obj["publishedAt"]) != nil
		switch {
		case !supplied && existing != nil && existing.PublishedAt != nil:
			n.PublishedAt = existing.PublishedAt
		case n.PublishedAt == nil:
			stamp := p.now().UTC()
			n.PublishedAt = &stamp
		}
	}

	if err := p.store.Upsert(ctx, n); err != nil {
		return domain.Newsletter{}, err
	}

	if p.logger != nil {
		p.logger.Info("newsletter stored", "id", n.ID, "status", n.Status, "replaced", existing != nil)
	}
	return n, nil
}
