package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/ports"
)

const (
	systemPrompt = "Be concise. Respond in English."
	schemaName   = "card_watch"
	day          = 24 * time.Hour
)

// Client implements ports.EnrichmentScanner against an OpenAI-compatible
// chat-completions endpoint that honours json_schema response formats
// (Perplexity by default).
type Client struct {
	endpoint    string
	model       string
	apiKey      string
	windowDays  int
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

var _ ports.EnrichmentScanner = (*Client)(nil)

// NewClient builds a scanner from configuration; a nil httpClient gets a default one.
func NewClient(cfg config.ScanConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	windowDays := cfg.WindowDays
	if windowDays < 1 {
		windowDays = 1
	}
	return &Client{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		windowDays:  windowDays,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  httpClient,
	}
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []message      `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Scan issues one request covering the last windowDays days ending at req.Now
// and returns the decoded findings object. All failures wrap domain.ErrEnrichment.
func (c *Client) Scan(ctx context.Context, req ports.ScanRequest) (any, error) {
	if !c.Enabled() {
		return nil, nil
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: schemaName, Schema: findingsSchema()},
		},
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req.Focus, now, c.windowDays)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal scan payload: %v", domain.ErrEnrichment, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", domain.ErrEnrichment, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send scan: %v", domain.ErrEnrichment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: scan returned %d: %s", domain.ErrEnrichment, resp.StatusCode, upstreamMessage(resp, payload))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrEnrichment, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no content", domain.ErrEnrichment)
	}

	return decodeContent(decoded.Choices[0].Message.Content)
}

// decodeContent accepts either a JSON-encoded string or an already structured value.
func decodeContent(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: response has no content", domain.ErrEnrichment)
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: decode content string: %v", domain.ErrEnrichment, err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: response has no content", domain.ErrEnrichment)
		}
		trimmed = []byte(text)
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("%w: parse content: %v", domain.ErrEnrichment, err)
	}
	return value, nil
}

func upstreamMessage(resp *http.Response, payload []byte) string {
	var e errorResponse
	if err := json.Unmarshal(payload, &e); err == nil && strings.TrimSpace(e.Error.Message) != "" {
		return strings.TrimSpace(e.Error.Message)
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// BuildPrompt renders the user instruction for the [now-windowDays, now] window.
func BuildPrompt(focus string, now time.Time, windowDays int) string {
	start := now.Add(-time.Duration(windowDays) * day)

	focusLine := "Prioritize Fanatics marketplace moves, Topps releases, and hobby safety issues."
	if focus = strings.TrimSpace(focus); focus != "" {
		focusLine = fmt.Sprintf("Prioritize signals related to %q.", focus)
	}

	return fmt.Sprintf(`You are a scout for sports card news.
Time window: %s to %s (%d days).
%s
Find credible developments collectors care about (market shifts, Fanatics/Topps updates, scam alerts, notable auctions). Return JSON only:
{
  "summary": string,
  "findings": [
    {
      "title": string,
      "summary": string,
      "howToAvoid": string,
      "threatLevel": "High" | "Medium" | "Low",
      "sources": [ { "uri": string, "title": string } ]
    }
  ],
  "sources": [ { "uri": string, "title": string } ]
}`,
		start.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339), windowDays, focusLine)
}

func findingsSchema() map[string]any {
	sourceList := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"uri":   map[string]any{"type": "string"},
				"title": map[string]any{"type": "string"},
			},
			"required": []string{"uri"},
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"findings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":      map[string]any{"type": "string"},
						"summary":    map[string]any{"type": "string"},
						"howToAvoid": map[string]any{"type": "string"},
						"threatLevel": map[string]any{
							"type": "string",
							"enum": []string{"High", "Medium", "Low"},
						},
						"sources": sourceList,
					},
					"required": []string{"summary"},
				},
			},
			"sources": sourceList,
		},
		"required": []string{"summary"},
	}
}
