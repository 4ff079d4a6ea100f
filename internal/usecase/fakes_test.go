package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/ports"
)

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

type stubScanner struct {
	enabled bool
	payload any
	err     error

	mu    sync.Mutex
	calls []ports.ScanRequest
}

func (s *stubScanner) Enabled() bool { return s.enabled }

func (s *stubScanner) Scan(_ context.Context, req ports.ScanRequest) (any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.payload, s.err
}

func (s *stubScanner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type memStore struct {
	list    []domain.Newsletter
	loadErr error
	markErr error
	saves   int
}

func (m *memStore) Load(context.Context) ([]domain.Newsletter, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.Newsletter(nil), m.list...), nil
}

func (m *memStore) Save(_ context.Context, list []domain.Newsletter) error {
	m.saves++
	m.list = append([]domain.Newsletter(nil), list...)
	return nil
}

func (m *memStore) Upsert(ctx context.Context, n domain.Newsletter) error {
	for i := range m.list {
		if m.list[i].ID == n.ID {
			m.list[i] = n
			return m.Save(ctx, m.list)
		}
	}
	return m.Save(ctx, append([]domain.Newsletter{n}, m.list...))
}

func (m *memStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	for i := range m.list {
		if m.list[i].ID == id {
			stamp := at
			m.list[i].EmailSentAt = &stamp
			return m.Save(ctx, m.list)
		}
	}
	return domain.ErrNotFound
}

type staticRecipients []string

func (s staticRecipients) Resolve(context.Context) []string { return s }

type recordingMailer struct {
	err  error
	sent []domain.Email
}

func (m *recordingMailer) Send(_ context.Context, email domain.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

var errBoom = errors.New("boom")

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}
