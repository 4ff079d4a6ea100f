package domain

import (
	"encoding/json"
	"time"
)

// MetadataEnrichmentKey is the metadata key holding the secondary scan result.
const MetadataEnrichmentKey = "enrichmentScan"

// Status is the publication state of a newsletter.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ThreatLevel classifies the risk attached to an insight.
type ThreatLevel string

const (
	ThreatHigh   ThreatLevel = "High"
	ThreatMedium ThreatLevel = "Medium"
	ThreatLow    ThreatLevel = "Low"
)

// Newsletter is one briefing edition, the unit of persistence and distribution.
type Newsletter struct {
	ID          string     `json:"id"`
	Headline    string     `json:"headline"`
	Summary     string     `json:"summary"`
	Insights    []Insight  `json:"insights"`
	Sources     []Source   `json:"sources"`
	Status      Status     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
	EmailSentAt *time.Time `json:"emailSentAt"`
	Metadata    Metadata   `json:"metadata"`
}

// Published reports whether the newsletter has been promoted.
func (n Newsletter) Published() bool {
	return n.Status == StatusPublished
}

// Sent reports whether a delivery for this newsletter already succeeded.
func (n Newsletter) Sent() bool {
	return n.EmailSentAt != nil
}

// Insight is one storyline of a briefing.
type Insight struct {
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	HowToAvoid  string      `json:"howToAvoid"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
}

// Source is a citation. URI is never empty once normalized.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Finding is an insight reported by the enrichment scan, with its own citations.
type Finding struct {
	Insight
	Sources []Source `json:"sources"`
}

// EnrichmentScan is the supplementary, time-windowed scan attached as metadata.
type EnrichmentScan struct {
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
	Sources  []Source  `json:"sources"`
}

// Metadata holds auxiliary data. The enrichment result is typed; everything else
// is kept verbatim in Extra.
type Metadata struct {
	EnrichmentScan *EnrichmentScan
	Extra          map[string]any
}

// MarshalJSON flattens Extra and the enrichment key into one object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[MetadataEnrichmentKey] = m.EnrichmentScan
	return json.Marshal(out)
}

// Email is a rendered message ready for delivery.
type Email struct {
	From    string
	To      []string
	Bcc     []string
	Subject string
	HTML    string
	Text    string
}
