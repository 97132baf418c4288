package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/notifier"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_Name(t *testing.T) {
	w := New("http://example.com/hook", nil)
	if w.Name() != "webhook" {
		t.Errorf("expected 'webhook', got %s", w.Name())
	}
}

func TestWebhook_Init_RequiresURL(t *testing.T) {
	w := &Webhook{}
	if err := w.Init(notifier.Config{Params: map[string]any{}}); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestWebhook_Init_WithURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{
		Params: map[string]any{
			"url": "http://example.com/hook",
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if w.url != "http://example.com/hook" {
		t.Errorf("expected url, got %s", w.url)
	}
}

func TestWebhook_Send(t *testing.T) {
	var receivedPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New(server.URL, nil)

	summary := notifier.Summary{
		Kind:        "backtest",
		RunID:       "run-1",
		Strategy:    "rsi-reversal",
		Symbol:      "BTCUSDT",
		TotalProfit: 12.5,
		TotalTrades: 4,
	}
	if err := w.Send(context.Background(), summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPayload["type"] != "run_summary" {
		t.Errorf("expected type run_summary, got %v", receivedPayload["type"])
	}
	got, ok := receivedPayload["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing from payload: %v", receivedPayload)
	}
	if got["runId"] != "run-1" || got["symbol"] != "BTCUSDT" {
		t.Errorf("summary = %v, want run-1 on BTCUSDT", got)
	}
	if got["totalProfit"].(float64) != 12.5 {
		t.Errorf("totalProfit = %v, want 12.5", got["totalProfit"])
	}
}

func TestWebhook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := New(server.URL, nil)

	err := w.Send(context.Background(), notifier.Summary{Kind: "backtest"})
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("Send error = %v, want ErrNotifierFailed", err)
	}
}

func TestWebhook_CustomHeaders(t *testing.T) {
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	headers := map[string]string{
		"Authorization": "Bearer test-token",
		"X-Custom":      "value",
	}
	w := New(server.URL, headers)

	w.Send(context.Background(), notifier.Summary{Kind: "backtest"})

	if receivedHeaders.Get("Authorization") != "Bearer test-token" {
		t.Error("expected Authorization header")
	}
	if receivedHeaders.Get("X-Custom") != "value" {
		t.Error("expected X-Custom header")
	}
}
