package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/notifier"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_New_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestWebhook_Notify(t *testing.T) {
	var received struct {
		Type    string            `json:"type"`
		Count   int               `json:"count"`
		Changes []notifier.Change `json:"changes"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %s", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w, err := New(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changes := []notifier.Change{
		{Ticker: "AAPL", AssetClass: core.AssetEquity, From: core.ActionHold, To: core.ActionBuy, DetectedAt: time.Now()},
		{Ticker: "BTC", AssetClass: core.AssetCrypto, From: core.ActionBuy, To: core.ActionHold, Gated: true, DetectedAt: time.Now()},
	}
	if err := w.Notify(context.Background(), changes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Type != "signal_changes" {
		t.Errorf("expected type signal_changes, got %v", received.Type)
	}
	if received.Count != 2 || len(received.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", received.Count)
	}
	if received.Changes[0].To != core.ActionBuy || !received.Changes[1].Gated {
		t.Errorf("unexpected changes %+v", received.Changes)
	}
}

func TestWebhook_Notify_Empty(t *testing.T) {
	w, _ := New(Config{URL: "http://127.0.0.1:0/hook"})
	if err := w.Notify(context.Background(), nil); err != nil {
		t.Errorf("empty batch should not error: %v", err)
	}
}

func TestWebhook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w, _ := New(Config{URL: server.URL})
	err := w.Notify(context.Background(), []notifier.Change{{Ticker: "TEST"}})
	if err == nil {
		t.Error("expected error for server error response")
	}
}

func TestWebhook_CustomHeaders(t *testing.T) {
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w, _ := New(Config{URL: server.URL, Headers: map[string]string{
		"Authorization": "Bearer test-token",
		"X-Custom":      "value",
	}})

	if err := w.Notify(context.Background(), []notifier.Change{{Ticker: "TEST"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedHeaders.Get("Authorization") != "Bearer test-token" {
		t.Error("expected Authorization header")
	}
	if receivedHeaders.Get("X-Custom") != "value" {
		t.Error("expected X-Custom header")
	}
}
