package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/normalize"
	"ScoutNewsletter/internal/ports"
)

const newslettersTable = "newsletters"

// PostgresStore persists newsletters as JSONB rows. position carries the
// collection order: new ids get a position below the current minimum so they
// sort first, replacements keep theirs.
type PostgresStore struct {
	db         *sql.DB
	table      string
	builder    sq.StatementBuilderType
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

var _ ports.NewsletterStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB opened with the "postgres" driver.
func NewPostgresStore(db *sql.DB, normalizer *normalize.Normalizer, logger *slog.Logger) *PostgresStore {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &PostgresStore{
		db:         db,
		table:      pq.QuoteIdentifier(newslettersTable),
		builder:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		normalizer: normalizer,
		logger:     logger,
	}
}

// Migrate creates the newsletters table when missing.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		position BIGINT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, r.table)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate newsletters: %w", err)
	}
	return nil
}

// Load returns all newsletters in collection order.
func (r *PostgresStore) Load(ctx context.Context) ([]domain.Newsletter, error) {
	query, args, err := r.selectAll().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query newsletters: %w", err)
	}

	result := make([]domain.Newsletter, 0)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan payload: %w", err)
		}

		var raw any
		if err := json.Unmarshal(payload, &raw); err != nil {
			r.warn("skipping unreadable newsletter row", "id", id, "error", err)
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		// The key column is authoritative so MarkSent and Upsert match the row.
		obj["id"] = id
		result = append(result, r.normalizer.Newsletter(obj))
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Save replaces the whole collection inside one transaction.
func (r *PostgresStore) Save(ctx context.Context, list []domain.Newsletter) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.builder.Delete(r.table).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear newsletters: %w", err)
		}

		for i, n := range list {
			query, args, err := r.insert(n, int64(i))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert newsletter %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

// Upsert replaces the row in place or inserts it ahead of every other row.
func (r *PostgresStore) Upsert(ctx context.Context, n domain.Newsletter) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.builder.Select("position").From(r.table).Where(sq.Eq{"id": n.ID}).ToSql()
		if err != nil {
			return fmt.Errorf("build lookup: %w", err)
		}

		var position int64
		err = tx.QueryRowContext(ctx, query, args...).Scan(&position)
		switch {
		case err == nil:
			query, args, err = r.update(n)
			if err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			query, args, err = r.nextHeadPosition().ToSql()
			if err != nil {
				return fmt.Errorf("build head position: %w", err)
			}
			if err := tx.QueryRowContext(ctx, query, args...).Scan(&position); err != nil {
				return fmt.Errorf("query head position: %w", err)
			}
			query, args, err = r.insert(n, position)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("lookup newsletter %s: %w", n.ID, err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert newsletter %s: %w", n.ID, err)
		}
		return nil
	})
}

// MarkSent stamps emailSentAt on the stored payload. Unknown ids are a no-op.
func (r *PostgresStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	query, args, err := r.markSent(id, at)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark sent %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		r.warn("mark sent: newsletter not found", "id", id)
	}
	return nil
}

func (r *PostgresStore) selectAll() sq.SelectBuilder {
	return r.builder.Select("id", "payload").From(r.table).OrderBy("position ASC")
}

func (r *PostgresStore) nextHeadPosition() sq.SelectBuilder {
	return r.builder.Select("COALESCE(MIN(position), 0) - 1").From(r.table)
}

func (r *PostgresStore) insert(n domain.Newsletter, position int64) (string, []any, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return "", nil, fmt.Errorf("marshal newsletter %s: %w", n.ID, err)
	}

	query, args, err := r.builder.Insert(r.table).
		Columns("id", "position", "payload").
		Values(n.ID, position, string(payload)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return query, args, nil
}

func (r *PostgresStore) update(n domain.Newsletter) (string, []any, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return "", nil, fmt.Errorf("marshal newsletter %s: %w", n.ID, err)
	}

	query, args, err := r.builder.Update(r.table).
		Set("payload", string(payload)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": n.ID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build update: %w", err)
	}
	return query, args, nil
}

func (r *PostgresStore) markSent(id string, at time.Time) (string, []any, error) {
	query, args, err := r.builder.Update(r.table).
		Set("payload", sq.Expr("jsonb_set(payload, '{emailSentAt}', to_jsonb(?::text))", at.UTC().Format(time.RFC3339Nano))).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build mark sent: %w", err)
	}
	return query, args, nil
}

func (r *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresStore) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
