package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/psureshmagadi17/stock-signal-vision/internal/alphavantage"
	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
	"github.com/psureshmagadi17/stock-signal-vision/internal/ratelimit"
	"github.com/psureshmagadi17/stock-signal-vision/internal/signal"
)

// ────────────────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────────────────

type fakeProvider struct {
	series    map[string]alphavantage.RawBar
	quote     alphavantage.RawQuote
	seriesErr error
	quoteErr  error
	calls     int
}

func (p *fakeProvider) FetchDailySeries(ctx context.Context, symbol, apiKey string) (map[string]alphavantage.RawBar, error) {
	p.calls++
	return p.series, p.seriesErr
}

func (p *fakeProvider) FetchQuote(ctx context.Context, symbol, apiKey string) (alphavantage.RawQuote, error) {
	p.calls++
	return p.quote, p.quoteErr
}

type fakeKeys struct{}

func (fakeKeys) Key() string         { return "TESTKEY1" }
func (fakeKeys) UsingFallback() bool { return false }

type memCache struct {
	snaps map[string]*model.StockSnapshot
}

func newMemCache() *memCache {
	return &memCache{snaps: make(map[string]*model.StockSnapshot)}
}

func (c *memCache) Get(ctx context.Context, symbol string) (*model.StockSnapshot, bool) {
	snap, ok := c.snaps[symbol]
	return snap, ok
}

func (c *memCache) Set(ctx context.Context, snap *model.StockSnapshot) {
	c.snaps[snap.Symbol] = snap
}

func goodSeries(days int) map[string]alphavantage.RawBar {
	series := make(map[string]alphavantage.RawBar, days)
	for i := 0; i < days; i++ {
		date := fmt.Sprintf("2025-%02d-%02d", 1+i/28, 1+i%28)
		series[date] = alphavantage.RawBar{
			Open:   "149.50",
			High:   "151.00",
			Low:    "148.75",
			Close:  "150.00",
			Volume: "52000000",
		}
	}
	return series
}

func goodQuote() alphavantage.RawQuote {
	return alphavantage.RawQuote{
		Price:         "150.00",
		Change:        "0.50",
		ChangePercent: "0.3344%",
		Volume:        "52000000",
	}
}

func newTestService(t *testing.T, provider Provider, cache SnapshotCache, policy ratelimit.Policy) *Service {
	t.Helper()
	governor, err := ratelimit.New(ratelimit.Config{Policy: policy})
	if err != nil {
		t.Fatalf("governor: %v", err)
	}
	return New(Config{
		Provider:  provider,
		Governor:  governor,
		Keys:      fakeKeys{},
		Generator: signal.NewGenerator(rand.New(rand.NewSource(7))),
		Cache:     cache,
	})
}

// ────────────────────────────────────────────────────────────
// Pipeline
// ────────────────────────────────────────────────────────────

func TestAnalyze_HappyPath(t *testing.T) {
	provider := &fakeProvider{series: goodSeries(30), quote: goodQuote()}
	svc := newTestService(t, provider, nil, ratelimit.DefaultPolicy())

	report, err := svc.Analyze(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Symbol != "AAPL" {
		t.Errorf("symbol not normalized: got %q", report.Symbol)
	}
	if report.CurrentSignal == "" || report.Confidence == "" {
		t.Errorf("incomplete report: %+v", report)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls: got %d, want 2", provider.calls)
	}
}

func TestAnalyze_InvalidSymbolCostsNothing(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(t, provider, nil, ratelimit.DefaultPolicy())

	_, err := svc.Analyze(context.Background(), "BRK.B")
	if KindOf(err) != KindInvalidSymbol {
		t.Fatalf("kind: got %q, want invalid_symbol", KindOf(err))
	}
	if provider.calls != 0 {
		t.Errorf("provider touched for invalid symbol: %d calls", provider.calls)
	}
	if _, day := svc.governor.Usage(Endpoint); day != 0 {
		t.Errorf("quota charged for invalid symbol: %d", day)
	}
}

func TestAnalyze_RateDeniedBeforeNetwork(t *testing.T) {
	provider := &fakeProvider{series: goodSeries(30), quote: goodQuote()}
	policy := ratelimit.Policy{PerMinute: 2, PerDay: 2, MinuteWindow: time.Minute, DayWindow: 24 * time.Hour}
	svc := newTestService(t, provider, nil, policy)

	// One analysis costs two provider calls and fills the cap.
	if _, err := svc.Analyze(context.Background(), "AAPL"); err != nil {
		t.Fatalf("first analysis: %v", err)
	}

	_, err := svc.Analyze(context.Background(), "MSFT")
	if KindOf(err) != KindRateLimited {
		t.Fatalf("kind: got %q, want rate_limited", KindOf(err))
	}
	if provider.calls != 2 {
		t.Errorf("provider called during denial: %d calls, want 2", provider.calls)
	}

	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatal("want *Error")
	}
	if ae.RetryAfter <= 0 {
		t.Errorf("rate-limited error missing RetryAfter hint: %v", ae.RetryAfter)
	}
}

func TestAnalyze_QuotaChargedOnFailedCall(t *testing.T) {
	provider := &fakeProvider{seriesErr: errors.New("connection reset")}
	svc := newTestService(t, provider, nil, ratelimit.DefaultPolicy())

	_, err := svc.Analyze(context.Background(), "AAPL")
	if KindOf(err) != KindTransport {
		t.Fatalf("kind: got %q, want transport_error", KindOf(err))
	}
	// The attempt was made, the charge stays.
	if _, day := svc.governor.Usage(Endpoint); day != 1 {
		t.Errorf("day usage after failed call: got %d, want 1", day)
	}
}

func TestAnalyze_CacheHitSkipsQuota(t *testing.T) {
	provider := &fakeProvider{series: goodSeries(30), quote: goodQuote()}
	cache := newMemCache()
	svc := newTestService(t, provider, cache, ratelimit.DefaultPolicy())

	if _, err := svc.Analyze(context.Background(), "AAPL"); err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	_, dayBefore := svc.governor.Usage(Endpoint)

	if _, err := svc.Analyze(context.Background(), "AAPL"); err != nil {
		t.Fatalf("cached analysis: %v", err)
	}
	_, dayAfter := svc.governor.Usage(Endpoint)

	if dayAfter != dayBefore {
		t.Errorf("cached analysis cost quota: %d -> %d", dayBefore, dayAfter)
	}
	if provider.calls != 2 {
		t.Errorf("provider re-fetched despite cache: %d calls", provider.calls)
	}
}

// ────────────────────────────────────────────────────────────
// Error classification
// ────────────────────────────────────────────────────────────

func TestAnalyze_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name     string
		provider *fakeProvider
		want     Kind
	}{
		{
			name:     "empty series is no_data",
			provider: &fakeProvider{series: map[string]alphavantage.RawBar{}, quote: goodQuote()},
			want:     KindNoData,
		},
		{
			name: "provider error message is upstream",
			provider: &fakeProvider{
				seriesErr: &alphavantage.APIError{Message: "Invalid API call."},
			},
			want: KindUpstream,
		},
		{
			name: "quota note is upstream",
			provider: &fakeProvider{
				seriesErr: &alphavantage.QuotaNote{Message: "API call frequency exceeded"},
			},
			want: KindUpstream,
		},
		{
			name: "deadline is network_timeout",
			provider: &fakeProvider{
				seriesErr: fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			},
			want: KindTimeout,
		},
		{
			name: "malformed close is malformed_payload",
			provider: &fakeProvider{
				series: map[string]alphavantage.RawBar{
					"2025-06-02": {Open: "1", High: "1", Low: "1", Close: "N/A", Volume: "1"},
				},
				quote: goodQuote(),
			},
			want: KindMalformedPayload,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, tc.provider, nil, ratelimit.DefaultPolicy())
			_, err := svc.Analyze(context.Background(), "AAPL")
			if KindOf(err) != tc.want {
				t.Errorf("kind: got %q, want %q (err=%v)", KindOf(err), tc.want, err)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindTimeout, KindTransport, KindRateLimited}
	for _, k := range retryable {
		if !Retryable(&Error{Kind: k}) {
			t.Errorf("%s: want retryable", k)
		}
	}
	final := []Kind{KindInvalidSymbol, KindNoData, KindMalformedPayload, KindUpstream}
	for _, k := range final {
		if Retryable(&Error{Kind: k}) {
			t.Errorf("%s: want not retryable", k)
		}
	}
}

func TestAnalyzeWithRetry_StopsOnDeterministicFailure(t *testing.T) {
	provider := &fakeProvider{seriesErr: &alphavantage.APIError{Message: "bad call"}}
	svc := newTestService(t, provider, nil, ratelimit.DefaultPolicy())

	_, err := svc.AnalyzeWithRetry(context.Background(), "AAPL", 3)
	if KindOf(err) != KindUpstream {
		t.Fatalf("kind: got %q, want upstream_error", KindOf(err))
	}
	// One series call, no retries for a deterministic failure.
	if provider.calls != 1 {
		t.Errorf("provider calls: got %d, want 1", provider.calls)
	}
}
