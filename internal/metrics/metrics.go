// Package metrics holds the Prometheus collectors for the analysis service
// and serves them over promhttp.
package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analysis pipeline.
type Metrics struct {
	AnalysesTotal      *prometheus.CounterVec // labels: result
	AnalysisDur        prometheus.Histogram
	ProviderRequests   *prometheus.CounterVec // labels: function
	ProviderRequestDur prometheus.Histogram
	RateDenials        prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	WSClients          prometheus.Gauge
	WatchlistRefreshes prometheus.Counter
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_analyses_total",
			Help: "Total analysis requests by outcome",
		}, []string{"result"}),
		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_analysis_duration_seconds",
			Help:    "End-to-end analysis duration",
			Buckets: prometheus.DefBuckets,
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_provider_requests_total",
			Help: "Outbound provider calls by function",
		}, []string{"function"}),
		ProviderRequestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_provider_request_duration_seconds",
			Help:    "Provider HTTP call duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		RateDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_rate_denials_total",
			Help: "Analyses denied by the rate governor",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_cache_hits_total",
			Help: "Snapshot cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_cache_misses_total",
			Help: "Snapshot cache misses",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
		WatchlistRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_watchlist_refreshes_total",
			Help: "Completed scheduled watchlist refreshes",
		}),
	}

	prometheus.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDur,
		m.ProviderRequests,
		m.ProviderRequestDur,
		m.RateDenials,
		m.CacheHits,
		m.CacheMisses,
		m.WSClients,
		m.WatchlistRefreshes,
	)

	return m
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[metrics] serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
