package recipients

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"ScoutNewsletter/internal/ports"
)

// Resolver unions an inline comma-separated list with an optional subscribers
// file. Nothing here ever fails: a missing or corrupt file contributes nothing.
type Resolver struct {
	inline          string
	subscribersPath string
	logger          *slog.Logger
}

var _ ports.RecipientResolver = (*Resolver)(nil)

// NewResolver wires the inline list and the subscribers file path.
func NewResolver(inline, subscribersPath string, logger *slog.Logger) *Resolver {
	return &Resolver{inline: inline, subscribersPath: subscribersPath, logger: logger}
}

// Resolve returns inline addresses first, then file addresses, deduplicated by
// exact match keeping the first occurrence.
func (r *Resolver) Resolve(ctx context.Context) []string {
	return dedupe(ParseInline(r.inline), r.fromFile())
}

// ParseInline splits a comma-separated list, trimming and dropping blanks.
func ParseInline(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *Resolver) fromFile() []string {
	if r.subscribersPath == "" {
		return nil
	}

	raw, err := os.ReadFile(r.subscribersPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.warn("subscribers file unreadable", "path", r.subscribersPath, "error", err)
		}
		return nil
	}

	list, err := ParseSubscribers(raw)
	if err != nil {
		r.warn("subscribers file corrupt, ignoring", "path", r.subscribersPath, "error", err)
		return nil
	}
	return list
}

// ParseSubscribers decodes an array of address strings or {"email": ...}
// objects. Entries of any other shape are dropped.
func ParseSubscribers(raw []byte) ([]string, error) {
	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		var email string
		switch v := entry.(type) {
		case string:
			email = v
		case map[string]any:
			email, _ = v["email"].(string)
		}
		if email = strings.TrimSpace(email); email != "" {
			out = append(out, email)
		}
	}
	return out, nil
}

func dedupe(lists ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, list := range lists {
		for _, addr := range list {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

func (r *Resolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
