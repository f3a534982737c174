package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
)

func TestFromReport_OnlyStrongSignalsAlert(t *testing.T) {
	quiet := []string{
		"Bullish momentum.",
		"Bearish momentum.",
		"Neutral — mixed signals.",
	}
	for _, sig := range quiet {
		if _, ok := FromReport(&model.AnalysisReport{Symbol: "AAPL", CurrentSignal: sig}); ok {
			t.Errorf("%q should not alert", sig)
		}
	}

	report := &model.AnalysisReport{
		Symbol:        "AAPL",
		CurrentSignal: "Strong Buy — oversold with band support.",
		Confidence:    model.ConfidenceHigh,
		Snapshot:      model.Quote{CurrentPrice: 142.10},
	}
	alert, ok := FromReport(report)
	if !ok {
		t.Fatal("strong buy should alert")
	}
	if alert.Symbol != "AAPL" || alert.Price != 142.10 {
		t.Errorf("alert: %+v", alert)
	}
	if alert.Message == "" {
		t.Error("alert message empty")
	}
}

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{
		Symbol:     "AAPL",
		Signal:     "Strong Buy — oversold with band support.",
		Confidence: model.ConfidenceHigh,
		Price:      142.10,
		Message:    "AAPL at $142.10",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["symbol"] != "AAPL" || got["confidence"] != "High" {
		t.Errorf("payload: %v", got)
	}
}

func TestWebhookNotifier_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Symbol: "AAPL"}); err == nil {
		t.Fatal("want error on 500 response")
	}
}
