// Package scheduler refreshes a configured watchlist on a cron schedule and
// pushes the fresh reports to streaming clients. Refreshes go through the
// same rate governor as interactive requests, so a busy watchlist can never
// bypass the provider quota.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/psureshmagadi17/stock-signal-vision/internal/analyzer"
	"github.com/psureshmagadi17/stock-signal-vision/internal/metrics"
	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
	"github.com/psureshmagadi17/stock-signal-vision/internal/notification"
)

// Analyzer runs one analysis. Satisfied by *analyzer.Service.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*model.AnalysisReport, error)
}

// Broadcaster pushes a report to connected clients. Satisfied by *gateway.Hub.
type Broadcaster interface {
	Broadcast(report *model.AnalysisReport)
}

// Scheduler owns the cron instance and the watchlist.
type Scheduler struct {
	cron     *cron.Cron
	analyzer Analyzer
	hub      Broadcaster
	notifier notification.Notifier
	symbols  []string
	metrics  *metrics.Metrics
	log      *slog.Logger
	ctx      context.Context
}

// New creates a Scheduler. Hub, notifier and metrics may be nil.
func New(ctx context.Context, a Analyzer, hub Broadcaster, notifier notification.Notifier, symbols []string, m *metrics.Metrics, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		analyzer: a,
		hub:      hub,
		notifier: notifier,
		symbols:  symbols,
		metrics:  m,
		log:      log,
		ctx:      ctx,
	}
}

// Register installs the refresh job under the given cron spec.
func (s *Scheduler) Register(spec string) error {
	_, err := s.cron.AddFunc(spec, s.refresh)
	return err
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("watchlist scheduler started", slog.Int("symbols", len(s.symbols)))
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("watchlist scheduler stopped")
}

// refresh re-analyzes the watchlist in order. A rate denial aborts the
// remaining symbols for this tick; the next tick picks them up with a
// fresher window instead of hammering the governor.
func (s *Scheduler) refresh() {
	for _, symbol := range s.symbols {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		report, err := s.analyzer.Analyze(s.ctx, symbol)
		if err != nil {
			if analyzer.KindOf(err) == analyzer.KindRateLimited {
				s.log.Warn("watchlist refresh rate limited, deferring rest of tick",
					slog.String("symbol", symbol))
				return
			}
			s.log.Warn("watchlist refresh failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()))
			continue
		}
		if s.hub != nil {
			s.hub.Broadcast(report)
		}
		if s.notifier != nil {
			if alert, ok := notification.FromReport(report); ok {
				if err := s.notifier.Send(s.ctx, alert); err != nil {
					s.log.Warn("alert delivery failed",
						slog.String("symbol", symbol),
						slog.String("error", err.Error()))
				}
			}
		}
	}
	if s.metrics != nil {
		s.metrics.WatchlistRefreshes.Inc()
	}
}
