// Package analyzer orchestrates one analysis run: rate admission, the two
// provider fetches, normalization, indicator computation, and signal
// generation. It is the single place pipeline failures are translated into
// the typed Error callers see.
package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/psureshmagadi17/stock-signal-vision/internal/alphavantage"
	"github.com/psureshmagadi17/stock-signal-vision/internal/indicator"
	"github.com/psureshmagadi17/stock-signal-vision/internal/metrics"
	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
	"github.com/psureshmagadi17/stock-signal-vision/internal/normalize"
	"github.com/psureshmagadi17/stock-signal-vision/internal/ratelimit"
	"github.com/psureshmagadi17/stock-signal-vision/internal/signal"
)

// Endpoint is the logical rate-limit endpoint covering provider fetches.
const Endpoint = "fetch"

// DefaultCallTimeout bounds each outbound provider call.
const DefaultCallTimeout = 30 * time.Second

// Provider fetches raw market data. Satisfied by *alphavantage.Client.
type Provider interface {
	FetchDailySeries(ctx context.Context, symbol, apiKey string) (map[string]alphavantage.RawBar, error)
	FetchQuote(ctx context.Context, symbol, apiKey string) (alphavantage.RawQuote, error)
}

// KeySource supplies the provider API key. Satisfied by *keystore.Store.
type KeySource interface {
	Key() string
	UsingFallback() bool
}

// SnapshotCache caches raw snapshots between analyses. Satisfied by
// *cache.SnapshotCache.
type SnapshotCache interface {
	Get(ctx context.Context, symbol string) (*model.StockSnapshot, bool)
	Set(ctx context.Context, snap *model.StockSnapshot)
}

// Config wires a Service. Provider, Governor, Keys and Generator are
// required; Cache, Metrics and Logger are optional.
type Config struct {
	Provider    Provider
	Governor    *ratelimit.Governor
	Keys        KeySource
	Generator   *signal.Generator
	Cache       SnapshotCache
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	CallTimeout time.Duration
}

// Service runs the analysis pipeline.
type Service struct {
	provider    Provider
	governor    *ratelimit.Governor
	keys        KeySource
	generator   *signal.Generator
	cache       SnapshotCache
	metrics     *metrics.Metrics
	log         *slog.Logger
	callTimeout time.Duration
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Service{
		provider:    cfg.Provider,
		governor:    cfg.Governor,
		keys:        cfg.Keys,
		generator:   cfg.Generator,
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
		callTimeout: cfg.CallTimeout,
	}
}

// Analyze produces an AnalysisReport for a symbol, or a typed *Error.
//
// Order matters: symbol validation and the cache lookup happen before rate
// admission so neither costs quota. Once admitted, each provider call is
// recorded when attempted and the charge is never rolled back, even if the
// call fails or the caller abandons the context mid-flight.
func (s *Service) Analyze(ctx context.Context, symbol string) (*model.AnalysisReport, error) {
	start := time.Now()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	report, err := s.analyze(ctx, symbol)
	if err != nil {
		kind := KindOf(err)
		s.count(string(kind))
		s.log.Warn("analysis failed",
			slog.String("symbol", symbol),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.count("ok")
	if s.metrics != nil {
		s.metrics.AnalysisDur.Observe(time.Since(start).Seconds())
	}
	s.log.Info("analysis complete",
		slog.String("symbol", symbol),
		slog.String("signal", report.CurrentSignal),
		slog.String("confidence", string(report.Confidence)),
		slog.Duration("took", time.Since(start)),
		slog.Bool("fallback_key", s.keys.UsingFallback()),
	)
	return report, nil
}

func (s *Service) analyze(ctx context.Context, symbol string) (*model.AnalysisReport, error) {
	if err := normalize.ValidateSymbol(symbol); err != nil {
		return nil, classify(symbol, err)
	}

	snap, ok := s.cachedSnapshot(ctx, symbol)
	if !ok {
		var err error
		snap, err = s.fetchSnapshot(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(ctx, snap)
		}
	}

	ind := indicator.Compute(snap)
	return s.generator.Report(snap, ind), nil
}

// fetchSnapshot performs the rate-governed provider round trip. Admission
// and the first charge happen atomically in Reserve, so two concurrent
// analyses can never both win the last slot.
func (s *Service) fetchSnapshot(ctx context.Context, symbol string) (*model.StockSnapshot, error) {
	ok, retryAfter := s.governor.Reserve(Endpoint)
	if !ok {
		if s.metrics != nil {
			s.metrics.RateDenials.Inc()
		}
		return nil, &Error{
			Kind:       KindRateLimited,
			Symbol:     symbol,
			RetryAfter: retryAfter,
		}
	}

	apiKey := s.keys.Key()

	series, err := timedCall(s, ctx, "TIME_SERIES_DAILY", func(callCtx context.Context) (map[string]alphavantage.RawBar, error) {
		return s.provider.FetchDailySeries(callCtx, symbol, apiKey)
	})
	if err != nil {
		return nil, classify(symbol, err)
	}

	// The reservation charged the series call; the quote call is charged
	// separately at attempt time.
	s.governor.Record(Endpoint)
	quote, err := timedCall(s, ctx, "GLOBAL_QUOTE", func(callCtx context.Context) (alphavantage.RawQuote, error) {
		return s.provider.FetchQuote(callCtx, symbol, apiKey)
	})
	if err != nil {
		return nil, classify(symbol, err)
	}

	snap, err := normalize.Snapshot(symbol, series, quote)
	if err != nil {
		return nil, classify(symbol, err)
	}
	return snap, nil
}

// timedCall applies the per-call deadline and observes the provider
// latency. The quota charge happens before entry (Reserve or Record): a
// call that later fails or times out still spent a provider slot.
func timedCall[T any](s *Service, ctx context.Context, function string, fn func(context.Context) (T, error)) (T, error) {
	if s.metrics != nil {
		s.metrics.ProviderRequests.WithLabelValues(function).Inc()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	v, err := fn(callCtx)
	if s.metrics != nil {
		s.metrics.ProviderRequestDur.Observe(time.Since(start).Seconds())
	}
	return v, err
}

func (s *Service) cachedSnapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool) {
	if s.cache == nil {
		return nil, false
	}
	snap, ok := s.cache.Get(ctx, symbol)
	if s.metrics != nil {
		if ok {
			s.metrics.CacheHits.Inc()
		} else {
			s.metrics.CacheMisses.Inc()
		}
	}
	return snap, ok
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.AnalysesTotal.WithLabelValues(result).Inc()
	}
}

// AnalyzeWithRetry is the bounded retry surface: it re-runs Analyze up to
// `attempts` times, but only for retryable failures, and waits out the
// governor's hint on rate limiting. Every attempt goes through admission
// again, so retries can never bypass quota.
func (s *Service) AnalyzeWithRetry(ctx context.Context, symbol string, attempts int) (*model.AnalysisReport, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		report, err := s.Analyze(ctx, symbol)
		if err == nil {
			return report, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}

		wait := time.Second << uint(i) // 1s, 2s, 4s...
		var ae *Error
		if errors.As(err, &ae) && ae.Kind == KindRateLimited && ae.RetryAfter > wait {
			wait = ae.RetryAfter
		}
		select {
		case <-ctx.Done():
			return nil, classify(symbol, ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}
