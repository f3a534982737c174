// Package notification delivers signal alerts to external channels
// (Telegram, generic webhooks) when the watchlist turns up a strong
// buy or sell signal.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
)

// Alert is a signal notification to be sent.
type Alert struct {
	Symbol     string           `json:"symbol"`
	Signal     string           `json:"signal"`
	Confidence model.Confidence `json:"confidence"`
	Price      float64          `json:"price"`
	Message    string           `json:"message"`
}

// FromReport builds an alert from a report when the signal is strong
// enough to be worth interrupting someone for. Returns false otherwise.
func FromReport(r *model.AnalysisReport) (Alert, bool) {
	if !strings.HasPrefix(r.CurrentSignal, "Strong") {
		return Alert{}, false
	}
	return Alert{
		Symbol:     r.Symbol,
		Signal:     r.CurrentSignal,
		Confidence: r.Confidence,
		Price:      r.Snapshot.CurrentPrice,
		Message: fmt.Sprintf("%s at $%.2f: %s (confidence %s)",
			r.Symbol, r.Snapshot.CurrentPrice, r.CurrentSignal, r.Confidence),
	}, true
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s", alert.Symbol, alert.Message)
	return nil
}

// Fanout sends each alert to every backend and returns the first error.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, alert Alert) error {
	var first error
	for _, n := range f {
		if err := n.Send(ctx, alert); err != nil && first == nil {
			first = err
		}
	}
	return first
}
