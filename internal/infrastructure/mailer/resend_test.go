package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/domain"
)

func TestResendSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/emails") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer re_test" {
			t.Errorf("unexpected auth %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "email_1"}`))
	}))
	defer server.Close()

	m, err := NewResend(config.DeliveryConfig{APIKey: "re_test", From: "Scout AI <alerts@example.com>"}, server.URL+"/")
	if err != nil {
		t.Fatalf("NewResend: %v", err)
	}

	err = m.Send(context.Background(), domain.Email{
		From:    "Scout AI <alerts@example.com>",
		To:      []string{"Scout AI <alerts@example.com>"},
		Bcc:     []string{"a@x.com", "b@x.com"},
		Subject: "Scout AI: Hello",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if got["subject"] != "Scout AI: Hello" || got["html"] != "<p>hi</p>" || got["text"] != "hi" {
		t.Fatalf("unexpected payload %#v", got)
	}
	bcc, _ := got["bcc"].([]any)
	if len(bcc) != 2 {
		t.Fatalf("unexpected bcc %#v", got["bcc"])
	}
}

func TestResendSendFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode": 422, "name": "validation_error", "message": "Invalid from field"}`))
	}))
	defer server.Close()

	m, err := NewResend(config.DeliveryConfig{APIKey: "re_test"}, server.URL+"/")
	if err != nil {
		t.Fatalf("NewResend: %v", err)
	}

	err = m.Send(context.Background(), domain.Email{From: "bad", To: []string{"bad"}, Subject: "s"})
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}
