// Package render projects a newsletter into the subject, HTML body and
// plain-text body of one email. Output depends only on the record.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"ScoutNewsletter/internal/domain"
)

// SubjectPrefix is prepended to the headline to form the subject line.
const SubjectPrefix = "Scout AI: "

// Message is a rendered newsletter.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

var htmlTemplate = template.Must(template.New("newsletter").Funcs(template.FuncMap{
	"fallback": fallback,
}).Parse(htmlLayout))

// Render produces the subject, HTML and text bodies. All record text is
// escaped by html/template.
func Render(n domain.Newsletter) (Message, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view{Newsletter: n, Scan: n.Metadata.EnrichmentScan}); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}

	return Message{
		Subject: Subject(n),
		HTML:    buf.String(),
		Text:    Text(n),
	}, nil
}

// Subject is the fixed prefix followed by the headline.
func Subject(n domain.Newsletter) string {
	return SubjectPrefix + n.Headline
}

// Text renders the plain-text alternative.
func Text(n domain.Newsletter) string {
	parts := []string{Subject(n), "", n.Summary}

	for i, insight := range n.Insights {
		parts = append(parts,
			"",
			fmt.Sprintf("%d. %s", i+1, fallback(insight.Title, "Insight")),
			"Summary: "+insight.Summary,
			"Threat: "+string(fallbackThreat(insight.ThreatLevel)),
			"Move: "+insight.HowToAvoid,
		)
	}

	if scan := n.Metadata.EnrichmentScan; scan != nil && (scan.Summary != "" || len(scan.Findings) > 0) {
		parts = append(parts, "", "Card Watch:")
		if scan.Summary != "" {
			parts = append(parts, scan.Summary)
		}
		for _, f := range scan.Findings {
			parts = append(parts,
				"",
				fallback(f.Title, "Finding"),
				"Summary: "+f.Summary,
				"Move: "+f.HowToAvoid,
			)
		}
	}

	if len(n.Sources) > 0 {
		parts = append(parts, "", "Sources:")
		for _, s := range n.Sources {
			parts = append(parts, fmt.Sprintf("- %s: %s", fallback(s.Title, s.URI), s.URI))
		}
	}

	return strings.Join(parts, "\n")
}

type view struct {
	Newsletter domain.Newsletter
	Scan       *domain.EnrichmentScan
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func fallbackThreat(level domain.ThreatLevel) domain.ThreatLevel {
	if level == "" {
		return domain.ThreatMedium
	}
	return level
}

const htmlLayout = `<div style="font-family:Inter,Arial,sans-serif;max-width:640px;margin:0 auto;padding:24px;background:#0f172a;color:#e2e8f0;">
  <p style="margin:0 0 8px;color:#a5b4fc;letter-spacing:0.2em;text-transform:uppercase;font-size:11px;">Scout AI + Kid Reporter</p>
  <h1 class="headline" style="margin:0 0 12px;font-size:28px;line-height:1.2;color:#f8fafc;">{{.Newsletter.Headline}}</h1>
  <p class="summary" style="margin:0 0 18px;color:#cbd5e1;">{{.Newsletter.Summary}}</p>
  <ol class="insights" style="list-style:none;margin:0 0 16px;background:#ffffff;border-radius:16px;padding:18px;border:1px solid #e2e8f0;color:#0f172a;">
{{- range .Newsletter.Insights}}
    <li class="insight" style="margin-bottom:14px;">
      <h3 style="margin:0;color:#0f172a;font-size:17px;">{{.Title}}</h3>
      <p style="margin:6px 0;color:#1f2937;line-height:1.5;">{{.Summary}}</p>
      <p class="threat" style="margin:4px 0;color:#dc2626;font-weight:600;">Threat: {{fallback (print .ThreatLevel) "Medium"}}</p>
      <p style="margin:4px 0;color:#0f766e;">Kid Reporter take: {{.HowToAvoid}}</p>
    </li>
{{- end}}
  </ol>
{{- with .Scan}}
  <section class="card-watch" style="margin:20px 0 0;padding:16px;border:1px solid #e5e7eb;border-radius:12px;background:#f8fafc;color:#0f172a;">
    <h3 style="margin:0 0 8px;color:#0f172a;">Card Watch</h3>
    <p style="margin:0;">{{.Summary}}</p>
{{- if .Findings}}
    <ul style="padding-left:18px;margin:12px 0 0;">
{{- range .Findings}}
      <li class="finding" style="margin-bottom:10px;">
        <strong>{{fallback .Title "Watch"}}</strong>: {{.Summary}}
        <div style="color:#0f766e;">Move: {{.HowToAvoid}}</div>
      </li>
{{- end}}
    </ul>
{{- end}}
  </section>
{{- end}}
{{- if .Newsletter.Sources}}
  <div class="sources" style="margin-top:18px;">
    <h3 style="margin:0 0 6px;color:#e2e8f0;">Sources</h3>
    <ul style="padding-left:18px;margin:0;color:#cbd5e1;">
{{- range .Newsletter.Sources}}
      <li style="margin-bottom:6px;"><a href="{{.URI}}" style="color:#2563eb;text-decoration:none;">{{fallback .Title .URI}}</a></li>
{{- end}}
    </ul>
  </div>
{{- end}}
  <p style="margin-top:20px;font-size:12px;color:#94a3b8;">You're getting this because you subscribe to Scout AI drops. Brought to you by the Kid Reporter.</p>
</div>
`
