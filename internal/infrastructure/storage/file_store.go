package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/normalize"
	"ScoutNewsletter/internal/ports"
)

// FileStore keeps the whole newsletter collection in one JSON array file.
// Every operation is a full load/modify/save; there is no cross-process lock,
// so concurrent writers race and the last save wins.
type FileStore struct {
	path       string
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

var _ ports.NewsletterStore = (*FileStore)(nil)

// NewFileStore wires a file path; the directory and file are created on first use.
func NewFileStore(path string, normalizer *normalize.Normalizer, logger *slog.Logger) *FileStore {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &FileStore{path: path, normalizer: normalizer, logger: logger}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the full ordered collection. A corrupt or non-array file
// degrades to an empty collection.
func (s *FileStore) Load(ctx context.Context) ([]domain.Newsletter, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	list, assigned, err := decodeCollection(raw, s.normalizer)
	if err != nil {
		s.warn("newsletter store unreadable, treating as empty", "path", s.path, "error", err)
		return []domain.Newsletter{}, nil
	}

	// Hand-edited entries without an id get one here; persist it so later
	// loads resolve the same record.
	if assigned > 0 {
		if err := s.Save(ctx, list); err != nil {
			return nil, fmt.Errorf("persist assigned ids: %w", err)
		}
		if s.logger != nil {
			s.logger.Info("assigned ids to stored newsletters", "path", s.path, "count", assigned)
		}
	}
	return list, nil
}

// Save overwrites the collection. The file is replaced via rename so readers
// never observe a partial write.
func (s *FileStore) Save(ctx context.Context, list []domain.Newsletter) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if list == nil {
		list = []domain.Newsletter{}
	}

	payload, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".newsletters-*.json")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace store: %w", err)
	}

	return nil
}

// Upsert replaces the entry with the same id in place, or prepends it.
func (s *FileStore) Upsert(ctx context.Context, n domain.Newsletter) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, upsert(list, n))
}

// MarkSent stamps emailSentAt on the matching record. Unknown ids are a no-op.
func (s *FileStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(list, id)
	if idx == -1 {
		s.warn("mark sent: newsletter not found", "id", id)
		return nil
	}

	sentAt := at.UTC()
	list[idx].EmailSentAt = &sentAt
	return s.Save(ctx, list)
}

func (s *FileStore) ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat store: %w", err)
	}

	if err := os.WriteFile(s.path, []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	return nil
}

func (s *FileStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// decodeCollection parses a JSON array of records. Non-object entries are
// skipped; everything else is re-normalized since operators may edit the file.
// assigned counts the entries that had no usable id.
func decodeCollection(raw []byte, normalizer *normalize.Normalizer) (list []domain.Newsletter, assigned int, err error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStoreRead, err)
	}

	items, ok := decoded.([]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: expected a JSON array", domain.ErrStoreRead)
	}

	list = make([]domain.Newsletter, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if normalize.ID(obj["id"]) == "" {
			assigned++
		}
		list = append(list, normalizer.Newsletter(item))
	}
	return list, assigned, nil
}

func upsert(list []domain.Newsletter, n domain.Newsletter) []domain.Newsletter {
	if idx := indexOf(list, n.ID); idx != -1 {
		list[idx] = n
		return list
	}
	return append([]domain.Newsletter{n}, list...)
}

func indexOf(list []domain.Newsletter, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
