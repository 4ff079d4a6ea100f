// Package normalize coerces untrusted, loosely-typed briefing payloads into the
// canonical domain model. Every piece of generated content passes through here
// before the rest of the system trusts it.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ScoutNewsletter/internal/domain"
)

const (
	DefaultHeadline       = "Scout AI Weekly"
	DefaultSummary        = "Weekly drop from the Kid Reporter + Scout AI desk."
	DefaultInsightSummary = "Add a short summary for this storyline."
	DefaultInsightAction  = "Add a collector takeaway or action."
)

// Normalizer is total over any decoded JSON value: it never fails and never panics.
type Normalizer struct {
	now   func() time.Time
	newID func() string
}

// New builds a normalizer; a nil clock means time.Now.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	ids := &idSource{now: now}
	return &Normalizer{now: now, newID: ids.next}
}

// Newsletter normalizes a decoded JSON object into a newsletter satisfying all
// record invariants. Non-object input yields a fully defaulted draft.
func (n *Normalizer) Newsletter(raw any) domain.Newsletter {
	obj, _ := raw.(map[string]any)

	id := ID(obj["id"])
	if id == "" {
		id = n.newID()
	}

	out := domain.Newsletter{
		ID:          id,
		Headline:    orDefault(textValue(obj["headline"]), DefaultHeadline),
		Summary:     orDefault(textValue(obj["summary"]), DefaultSummary),
		Insights:    Insights(obj["insights"]),
		Sources:     Sources(obj["sources"]),
		Status:      Status(obj["status"]),
		PublishedAt: Timestamp(obj["publishedAt"]),
		EmailSentAt: Timestamp(obj["emailSentAt"]),
		Metadata:    Metadata(obj["metadata"]),
	}

	if out.Published() && out.PublishedAt == nil {
		now := n.now().UTC()
		out.PublishedAt = &now
	}

	return out
}

// Insights maps each element independently; a non-array yields an empty list.
func Insights(raw any) []domain.Insight {
	items, _ := raw.([]any)
	out := make([]domain.Insight, 0, len(items))
	for i, item := range items {
		out = append(out, insight(item, i, "Insight"))
	}
	return out
}

func insight(raw any, index int, placeholder string) domain.Insight {
	obj, _ := raw.(map[string]any)
	return domain.Insight{
		Title:       orDefault(textValue(obj["title"]), fmt.Sprintf("%s %d", placeholder, index+1)),
		Summary:     orDefault(textValue(obj["summary"]), DefaultInsightSummary),
		HowToAvoid:  orDefault(textValue(obj["howToAvoid"]), DefaultInsightAction),
		ThreatLevel: ThreatLevel(obj["threatLevel"]),
	}
}

// Sources drops entries without a uri. Placeholder titles use the position in
// the input list, before filtering.
func Sources(raw any) []domain.Source {
	items, _ := raw.([]any)
	out := make([]domain.Source, 0, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		uri := textValue(obj["uri"])
		if uri == "" {
			continue
		}
		out = append(out, domain.Source{
			URI:   uri,
			Title: orDefault(textValue(obj["title"]), fmt.Sprintf("Source %d", i+1)),
		})
	}
	return out
}

// ThreatLevel compares case-insensitively; anything unrecognized is Medium.
func ThreatLevel(raw any) domain.ThreatLevel {
	switch strings.ToLower(textValue(raw)) {
	case "high":
		return domain.ThreatHigh
	case "low":
		return domain.ThreatLow
	default:
		return domain.ThreatMedium
	}
}

// Status coerces to the closed enum, defaulting to draft.
func Status(raw any) domain.Status {
	if strings.EqualFold(textValue(raw), string(domain.StatusPublished)) {
		return domain.StatusPublished
	}
	return domain.StatusDraft
}

// Metadata keeps unknown keys verbatim and types the enrichment result.
func Metadata(raw any) domain.Metadata {
	obj, _ := raw.(map[string]any)

	var meta domain.Metadata
	for k, v := range obj {
		if k == domain.MetadataEnrichmentKey {
			meta.EnrichmentScan = EnrichmentScan(v)
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any, len(obj))
		}
		meta.Extra[k] = v
	}
	return meta
}

// EnrichmentScan returns nil unless raw is an object.
func EnrichmentScan(raw any) *domain.EnrichmentScan {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	items, _ := obj["findings"].([]any)
	findings := make([]domain.Finding, 0, len(items))
	for i, item := range items {
		fobj, _ := item.(map[string]any)
		findings = append(findings, domain.Finding{
			Insight: insight(item, i, "Finding"),
			Sources: Sources(fobj["sources"]),
		})
	}

	return &domain.EnrichmentScan{
		Summary:  textValue(obj["summary"]),
		Findings: findings,
		Sources:  Sources(obj["sources"]),
	}
}

func textValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// ID passes a present identifier through as a string. Scalars are converted;
// empty strings, zero, false and non-scalars count as absent.
func ID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		if id == 0 {
			return ""
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		if f, err := id.Float64(); err == nil && f == 0 {
			return ""
		}
		return id.String()
	case bool:
		if !id {
			return ""
		}
		return strconv.FormatBool(id)
	default:
		return ""
	}
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateTime, time.DateOnly}

// Timestamp parses an RFC 3339 string (or a bare date / local date-time,
// read as UTC) into a UTC instant; anything else is nil.
func Timestamp(v any) *time.Time {
	s := textValue(v)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// idSource hands out nl_<unix-millis> ids, bumping the value when two ids
// would land on the same millisecond.
type idSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func (s *idSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return fmt.Sprintf("nl_%d", ms)
}
