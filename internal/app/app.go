package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/infrastructure/llm"
	"ScoutNewsletter/internal/infrastructure/mailer"
	"ScoutNewsletter/internal/infrastructure/recipients"
	"ScoutNewsletter/internal/infrastructure/scan"
	"ScoutNewsletter/internal/infrastructure/storage"
	"ScoutNewsletter/internal/logging"
	"ScoutNewsletter/internal/normalize"
	"ScoutNewsletter/internal/ports"
	"ScoutNewsletter/internal/usecase"
)

// Application wires configs to use cases. Adapters that need credentials are
// built on first use so each command only requires what it touches.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	now        func() time.Time
	normalizer *normalize.Normalizer
	store      ports.NewsletterStore
	db         *sql.DB
}

// New opens the configured store and returns a ready application.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.RequireStorage(); err != nil {
		return nil, err
	}

	a := &Application{
		cfg:    cfg,
		logger: baseLogger,
		now:    time.Now,
	}
	a.normalizer = normalize.New(a.now)

	storeLogger := baseLogger.With("component", "store", "driver", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pg := storage.NewPostgresStore(db, a.normalizer, storeLogger)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.store = pg
	default:
		a.store = storage.NewFileStore(cfg.Storage.NewslettersPath(), a.normalizer, storeLogger)
	}

	return a, nil
}

// Close releases the database handle when the postgres store is in use.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Generate produces a draft briefing; nothing is persisted.
func (a *Application) Generate(ctx context.Context, focus string) (usecase.Briefing, error) {
	if err := a.cfg.RequireGeneration(); err != nil {
		return usecase.Briefing{}, err
	}

	registry, err := a.providers(ctx)
	if err != nil {
		return usecase.Briefing{}, err
	}
	primary, err := registry.Resolve(a.cfg.Generator.Provider)
	if err != nil {
		return usecase.Briefing{}, err
	}

	generator := usecase.NewGenerator(usecase.GeneratorDeps{
		Primary:    primary,
		Scanner:    scan.NewClient(a.cfg.Scan, nil),
		Normalizer: a.normalizer,
		Logger:     a.logger.With("component", "generator"),
		Now:        a.now,
	})
	return generator.Generate(ctx, focus)
}

// Publish normalizes and upserts a decoded payload.
func (a *Application) Publish(ctx context.Context, payload any, opts usecase.PublishOptions) (domain.Newsletter, error) {
	publisher := usecase.NewPublisher(a.store, a.normalizer, a.logger.With("component", "publisher"), a.now)
	return publisher.Publish(ctx, payload, opts)
}

// Send delivers a stored newsletter to every resolved recipient.
func (a *Application) Send(ctx context.Context, id string) (usecase.SendReport, error) {
	if err := a.cfg.RequireDelivery(); err != nil {
		return usecase.SendReport{}, err
	}

	resend, err := mailer.NewResend(a.cfg.Delivery, "")
	if err != nil {
		return usecase.SendReport{}, err
	}

	sender := usecase.NewSender(usecase.SenderDeps{
		Store: a.store,
		Recipients: recipients.NewResolver(
			a.cfg.Recipients.Inline,
			a.cfg.Storage.SubscribersPath(),
			a.logger.With("component", "recipients"),
		),
		Mailer: resend,
		From:   a.cfg.Delivery.From,
		Logger: a.logger.With("component", "sender"),
		Now:    a.now,
	})
	return sender.Send(ctx, id)
}

// providers registers every primary provider that has a credential.
func (a *Application) providers(ctx context.Context) (*llm.Registry, error) {
	registry := llm.NewRegistry()

	if a.cfg.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, a.cfg.Gemini, !a.cfg.Generator.DisableGrounding)
		switch {
		case err == nil:
			registry.Register(gemini)
		case a.cfg.Generator.Provider == config.ProviderGemini:
			return nil, err
		default:
			a.logger.Warn("gemini provider unavailable", "error", err)
		}
	}
	if a.cfg.OpenAI.APIKey != "" {
		registry.Register(llm.NewOpenAIClient(a.cfg.OpenAI))
	}
	if a.cfg.Anthropic.APIKey != "" {
		registry.Register(llm.NewAnthropicClient(a.cfg.Anthropic))
	}

	a.logger.Debug("providers registered", "providers", registry.Names())
	return registry, nil
}
