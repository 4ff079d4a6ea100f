package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/ports"
)

var scanNow = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func newTestClient(url string) *Client {
	return NewClient(config.ScanConfig{
		APIKey:      "pplx-key",
		Endpoint:    url,
		Model:       "sonar-pro",
		WindowDays:  10,
		MaxTokens:   1100,
		Temperature: 0.15,
	}, nil)
}

func TestEnabled(t *testing.T) {
	t.Parallel()

	if NewClient(config.ScanConfig{}, nil).Enabled() {
		t.Fatal("client without key must be disabled")
	}
	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client must be disabled")
	}
	if !newTestClient("http://localhost").Enabled() {
		t.Fatal("client with key must be enabled")
	}
}

func TestScanRequestShapeAndStringContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer pplx-key" {
			t.Errorf("unexpected auth %q", got)
		}

		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "sonar-pro" || body.MaxTokens != 1100 || body.Temperature != 0.15 {
			t.Errorf("unexpected limits: %+v", body)
		}
		if body.ResponseFormat.Type != "json_schema" || body.ResponseFormat.JSONSchema.Name != schemaName {
			t.Errorf("unexpected response format: %+v", body.ResponseFormat)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}
		if !strings.Contains(body.Messages[1].Content, "2025-10-29T12:00:00Z to 2025-11-08T12:00:00Z (10 days)") {
			t.Errorf("window missing from prompt: %s", body.Messages[1].Content)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"Market cooling\",\"findings\":[]}"}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Scan(context.Background(), ports.ScanRequest{Now: scanNow})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	obj, ok := got.(map[string]any)
	if !ok || obj["summary"] != "Market cooling" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestScanStructuredContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":{"summary":"ok","sources":[{"uri":"https://a"}]}}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Scan(context.Background(), ports.ScanRequest{Now: scanNow})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if obj, _ := got.(map[string]any); obj["summary"] != "ok" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestScanFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "upstream error message", status: http.StatusUnauthorized, body: `{"error":{"message":"invalid api key"}}`, wantMsg: "401: invalid api key"},
		{name: "status text fallback", status: http.StatusBadGateway, body: `<html>`, wantMsg: "502: Bad Gateway"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantMsg: "no content"},
		{name: "null content", status: http.StatusOK, body: `{"choices":[{"message":{"content":null}}]}`, wantMsg: "no content"},
		{name: "empty string content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, wantMsg: "no content"},
		{name: "unparseable string content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"not json"}}]}`, wantMsg: "parse content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Scan(context.Background(), ports.ScanRequest{Now: scanNow})
			if !errors.Is(err, domain.ErrEnrichment) {
				t.Fatalf("expected enrichment error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected %q in %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestBuildPromptFocus(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("Wemby rookies", scanNow, 1)
	if !strings.Contains(prompt, `Prioritize signals related to "Wemby rookies".`) {
		t.Fatalf("focus missing: %s", prompt)
	}
	if !strings.Contains(prompt, "2025-11-07T12:00:00Z to 2025-11-08T12:00:00Z (1 days)") {
		t.Fatalf("window missing: %s", prompt)
	}

	if !strings.Contains(BuildPrompt("  ", scanNow, 10), "Fanatics marketplace moves") {
		t.Fatal("default focus line missing")
	}
}

func TestNewClientHTTPDefaults(t *testing.T) {
	t.Parallel()

	if got := NewClient(config.ScanConfig{}, nil).httpClient.Timeout; got != 60*time.Second {
		t.Fatalf("unexpected default timeout %v", got)
	}

	custom := &http.Client{}
	if NewClient(config.ScanConfig{}, custom).httpClient != custom {
		t.Fatal("caller supplied client must be used as is")
	}
}
