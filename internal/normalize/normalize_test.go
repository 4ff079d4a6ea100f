package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"ScoutNewsletter/internal/domain"
)

var fixedNow = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(func() time.Time { return fixedNow })
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

func TestNewsletterEmptyObject(t *testing.T) {
	t.Parallel()

	got := newTestNormalizer().Newsletter(map[string]any{})

	if got.ID == "" {
		t.Fatal("expected synthesized id")
	}
	assert.Equal(t, DefaultHeadline, got.Headline)
	assert.Equal(t, DefaultSummary, got.Summary)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Equal(t, 0, len(got.Insights))
	assert.Equal(t, 0, len(got.Sources))
	if got.PublishedAt != nil || got.EmailSentAt != nil {
		t.Fatalf("expected nil timestamps, got %v / %v", got.PublishedAt, got.EmailSentAt)
	}
	if got.Metadata.EnrichmentScan != nil {
		t.Fatal("expected no enrichment")
	}
}

func TestNewsletterNonObjectInputs(t *testing.T) {
	t.Parallel()

	inputs := []any{nil, "text", 42.0, []any{1.0, "x"}, true}
	n := newTestNormalizer()
	for _, in := range inputs {
		got := n.Newsletter(in)
		if got.ID == "" || got.Headline == "" || got.Summary == "" {
			t.Fatalf("input %#v: incomplete record %+v", in, got)
		}
	}
}

func TestNewsletterWrongTypes(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{
		"id": 17,
		"headline": "   ",
		"summary": ["not", "a", "string"],
		"insights": {"title": "not an array"},
		"sources": "nope",
		"status": 3,
		"publishedAt": "yesterday",
		"metadata": "oops"
	}`)

	got := newTestNormalizer().Newsletter(raw)

	assert.Equal(t, DefaultHeadline, got.Headline)
	assert.Equal(t, DefaultSummary, got.Summary)
	assert.Equal(t, 0, len(got.Insights))
	assert.Equal(t, 0, len(got.Sources))
	assert.Equal(t, domain.StatusDraft, got.Status)
	if got.PublishedAt != nil {
		t.Fatalf("expected unparseable publishedAt to be dropped, got %v", got.PublishedAt)
	}
	assert.Equal(t, "17", got.ID)
}

func TestIDPassThrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  any
		want string
	}{
		{name: "string", raw: " nl_5 ", want: "nl_5"},
		{name: "integer", raw: float64(42), want: "42"},
		{name: "fraction", raw: 4.5, want: "4.5"},
		{name: "large", raw: float64(1741944600000), want: "1741944600000"},
		{name: "number", raw: json.Number("7"), want: "7"},
		{name: "true", raw: true, want: "true"},
		{name: "zero", raw: float64(0), want: ""},
		{name: "false", raw: false, want: ""},
		{name: "object", raw: map[string]any{"v": 1}, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ID(tc.raw))
		})
	}

	n := newTestNormalizer()
	first := n.Newsletter(decode(t, `{"id": 42, "headline": "first"}`))
	second := n.Newsletter(decode(t, `{"id": 42, "headline": "second"}`))
	assert.Equal(t, "42", first.ID)
	assert.Equal(t, first.ID, second.ID)
}

func TestTimestampLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2025-11-09T08:00:00+02:00", want: time.Date(2025, 11, 9, 6, 0, 0, 0, time.UTC)},
		{raw: "2025-11-09", want: time.Date(2025, 11, 9, 0, 0, 0, 0, time.UTC)},
		{raw: "2025-11-09 07:30:00", want: time.Date(2025, 11, 9, 7, 30, 0, 0, time.UTC)},
		{raw: "2025-11-09T07:30:00", want: time.Date(2025, 11, 9, 7, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got := Timestamp(tc.raw)
		if got == nil || !got.Equal(tc.want) {
			t.Fatalf("Timestamp(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}

	if Timestamp("next tuesday") != nil || Timestamp(12) != nil {
		t.Fatal("unparseable timestamps must be nil")
	}

	published := newTestNormalizer().Newsletter(map[string]any{"status": "published", "publishedAt": "2025-11-09"})
	if published.PublishedAt == nil || !published.PublishedAt.Equal(time.Date(2025, 11, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bare date must survive, got %v", published.PublishedAt)
	}
}

func TestInsightsDefaultsPerElement(t *testing.T) {
	t.Parallel()

	raw := decode(t, `[
		{"title": " Rookie surge ", "summary": "Prices up", "howToAvoid": "Wait", "threatLevel": "hIgH"},
		"garbage",
		{"threatLevel": "critical"},
		{"title": "", "threatLevel": "LOW"}
	]`)

	got := Insights(raw)
	if len(got) != 4 {
		t.Fatalf("expected 4 insights, got %d", len(got))
	}

	assert.Equal(t, "Rookie surge", got[0].Title)
	assert.Equal(t, domain.ThreatHigh, got[0].ThreatLevel)

	assert.Equal(t, "Insight 2", got[1].Title)
	assert.Equal(t, DefaultInsightSummary, got[1].Summary)
	assert.Equal(t, DefaultInsightAction, got[1].HowToAvoid)
	assert.Equal(t, domain.ThreatMedium, got[1].ThreatLevel)

	assert.Equal(t, "Insight 3", got[2].Title)
	assert.Equal(t, domain.ThreatMedium, got[2].ThreatLevel)

	assert.Equal(t, "Insight 4", got[3].Title)
	assert.Equal(t, domain.ThreatLow, got[3].ThreatLevel)
}

func TestSourcesFiltering(t *testing.T) {
	t.Parallel()

	got := Sources(decode(t, `[{"title": "X"}]`))
	assert.Equal(t, 0, len(got))

	got = Sources(decode(t, `[{"uri": "https://a"}]`))
	if len(got) != 1 {
		t.Fatalf("expected 1 source, got %d", len(got))
	}
	assert.Equal(t, "https://a", got[0].URI)
	assert.Equal(t, "Source 1", got[0].Title)

	got = Sources(decode(t, `[{"uri": "  "}, {"uri": "https://b", "title": " B "}, 5]`))
	if len(got) != 1 {
		t.Fatalf("expected 1 source, got %d", len(got))
	}
	assert.Equal(t, "B", got[0].Title)
}

func TestThreatLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want domain.ThreatLevel
	}{
		{"High", domain.ThreatHigh},
		{" low ", domain.ThreatLow},
		{"MEDIUM", domain.ThreatMedium},
		{"severe", domain.ThreatMedium},
		{nil, domain.ThreatMedium},
		{1.0, domain.ThreatMedium},
	}

	for _, tt := range tests {
		if got := ThreatLevel(tt.in); got != tt.want {
			t.Errorf("ThreatLevel(%#v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPublishedWithoutTimestampGetsNow(t *testing.T) {
	t.Parallel()

	got := newTestNormalizer().Newsletter(map[string]any{"status": "Published"})

	assert.Equal(t, domain.StatusPublished, got.Status)
	if got.PublishedAt == nil || !got.PublishedAt.Equal(fixedNow) {
		t.Fatalf("expected publishedAt=%v, got %v", fixedNow, got.PublishedAt)
	}
}

func TestIDsAreDistinctWithinOneMillisecond(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := n.Newsletter(nil).ID
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestMetadataEnrichment(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{
		"metadata": {
			"campaign": "week-45",
			"enrichmentScan": {
				"summary": " Card market cooling ",
				"findings": [{"summary": "Fake slabs", "threatLevel": "high", "sources": [{"uri": "https://f"}, {}]}],
				"sources": [{"uri": "https://s", "title": "S"}]
			}
		}
	}`)

	got := newTestNormalizer().Newsletter(raw)
	scan := got.Metadata.EnrichmentScan
	if scan == nil {
		t.Fatal("expected enrichment scan")
	}
	assert.Equal(t, "Card market cooling", scan.Summary)
	assert.Equal(t, 1, len(scan.Findings))
	assert.Equal(t, "Finding 1", scan.Findings[0].Title)
	assert.Equal(t, domain.ThreatHigh, scan.Findings[0].ThreatLevel)
	assert.Equal(t, 1, len(scan.Findings[0].Sources))
	assert.Equal(t, 1, len(scan.Sources))
	assert.Equal(t, "week-45", got.Metadata.Extra["campaign"])

	null := newTestNormalizer().Newsletter(decode(t, `{"metadata": {"enrichmentScan": null}}`))
	if null.Metadata.EnrichmentScan != nil {
		t.Fatal("null enrichment must stay nil")
	}
}

func TestNormalizationIsFixedPoint(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{
		"id": "nl_1",
		"headline": "Wemby mania",
		"summary": "Three storylines.",
		"insights": [{"title": "A", "threatLevel": "low"}, {}],
		"sources": [{"uri": "https://a"}, {"title": "dropped"}],
		"status": "published",
		"publishedAt": "2025-11-08T10:30:00.123Z",
		"emailSentAt": "2025-11-09T08:00:00Z",
		"metadata": {"note": 1, "enrichmentScan": {"summary": "s", "findings": [{}]}}
	}`)

	n := newTestNormalizer()
	first := n.Newsletter(raw)

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var plain any
	if err := json.Unmarshal(firstJSON, &plain); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	secondJSON, err := json.Marshal(n.Newsletter(plain))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	assert.Equal(t, string(firstJSON), string(secondJSON))
}
