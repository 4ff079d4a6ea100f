package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/normalize"
	"ScoutNewsletter/internal/ports"
)

// ScanState tells apart the three ways an enrichment scan can end.
type ScanState int

const (
	ScanDisabled ScanState = iota
	ScanSucceeded
	ScanFailed
)

func (s ScanState) String() string {
	switch s {
	case ScanSucceeded:
		return "succeeded"
	case ScanFailed:
		return "failed"
	default:
		return "disabled"
	}
}

// ScanOutcome is the result of the optional enrichment step. Payload is set
// only on success, Err only on failure.
type ScanOutcome struct {
	State   ScanState
	Payload any
	Err     error
}

// GeneratorDeps wires the driven adapters of the generate flow.
type GeneratorDeps struct {
	Primary    ports.TextGenerator
	Scanner    ports.EnrichmentScanner
	Normalizer *normalize.Normalizer
	Logger     *slog.Logger
	Now        func() time.Time
}

// Generator produces a normalized draft briefing.
type Generator struct {
	primary    ports.TextGenerator
	scanner    ports.EnrichmentScanner
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

// Briefing is a generated newsletter together with how its enrichment ended.
type Briefing struct {
	Newsletter domain.Newsletter
	Scan       ScanOutcome
}

// NewGenerator constructs the generate use case.
func NewGenerator(deps GeneratorDeps) *Generator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = normalize.New(now)
	}
	return &Generator{
		primary:    deps.Primary,
		scanner:    deps.Scanner,
		normalizer: normalizer,
		logger:     deps.Logger,
		now:        now,
	}
}

// Generate runs the primary call and the enrichment scan side by side. Only
// the primary call can fail the operation.
func (g *Generator) Generate(ctx context.Context, focus string) (Briefing, error) {
	if g.primary == nil {
		return Briefing{}, fmt.Errorf("%w: no primary generator configured", domain.ErrConfiguration)
	}

	scanDone := make(chan ScanOutcome, 1)
	go func() {
		scanDone <- g.scan(ctx, focus)
	}()

	g.debug("requesting briefing", "provider", g.primary.Name(), "focus", focus)
	text, err := g.primary.Generate(ctx, BriefingPrompt(focus))
	if err != nil {
		return Briefing{}, fmt.Errorf("%w: %s: %w", domain.ErrGeneration, g.primary.Name(), err)
	}

	span, err := ExtractJSON(text)
	if err != nil {
		return Briefing{}, err
	}
	candidate, err := ParseCandidate(span)
	if err != nil {
		return Briefing{}, err
	}

	outcome := <-scanDone

	var enrichment any
	if outcome.State == ScanSucceeded {
		enrichment = outcome.Payload
	}
	candidate["metadata"] = map[string]any{domain.MetadataEnrichmentKey: enrichment}

	n := g.normalizer.Newsletter(candidate)
	g.debug("briefing generated", "id", n.ID, "insights", len(n.Insights), "scan", outcome.State.String())

	return Briefing{Newsletter: n, Scan: outcome}, nil
}

func (g *Generator) scan(ctx context.Context, focus string) ScanOutcome {
	if g.scanner == nil || !g.scanner.Enabled() {
		return ScanOutcome{State: ScanDisabled}
	}

	payload, err := g.scanner.Scan(ctx, ports.ScanRequest{Focus: focus, Now: g.now()})
	if err == nil && payload == nil {
		err = fmt.Errorf("%w: empty result", domain.ErrEnrichment)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrEnrichment) {
			err = fmt.Errorf("%w: %w", domain.ErrEnrichment, err)
		}
		if g.logger != nil {
			g.logger.Warn("enrichment scan skipped", "error", err)
		}
		return ScanOutcome{State: ScanFailed, Err: err}
	}

	return ScanOutcome{State: ScanSucceeded, Payload: payload}
}

func (g *Generator) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
