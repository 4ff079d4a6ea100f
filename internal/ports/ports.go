package ports

import (
	"context"
	"time"

	"ScoutNewsletter/internal/domain"
)

// TextGenerator asks a primary generative service for free-form text.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ScanRequest parameterizes one enrichment scan.
type ScanRequest struct {
	Focus string
	Now   time.Time
}

// EnrichmentScanner queries the secondary search service. Enabled reports
// whether a credential is configured; Scan returns the decoded JSON payload.
type EnrichmentScanner interface {
	Enabled() bool
	Scan(ctx context.Context, req ScanRequest) (any, error)
}

// NewsletterStore persists the ordered newsletter collection.
type NewsletterStore interface {
	Load(ctx context.Context) ([]domain.Newsletter, error)
	Save(ctx context.Context, list []domain.Newsletter) error
	Upsert(ctx context.Context, n domain.Newsletter) error
	MarkSent(ctx context.Context, id string, at time.Time) error
}

// RecipientResolver produces the deduplicated destination address list.
type RecipientResolver interface {
	Resolve(ctx context.Context) []string
}

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, email domain.Email) error
}
