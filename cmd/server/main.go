// cmd/server runs the stock analysis service: HTTP API, WebSocket report
// stream, Prometheus metrics, and the optional cron watchlist refresher.
package main

import (
	"context"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/psureshmagadi17/stock-signal-vision/config"
	"github.com/psureshmagadi17/stock-signal-vision/internal/alphavantage"
	"github.com/psureshmagadi17/stock-signal-vision/internal/analyzer"
	"github.com/psureshmagadi17/stock-signal-vision/internal/cache"
	"github.com/psureshmagadi17/stock-signal-vision/internal/gateway"
	"github.com/psureshmagadi17/stock-signal-vision/internal/keystore"
	"github.com/psureshmagadi17/stock-signal-vision/internal/logger"
	"github.com/psureshmagadi17/stock-signal-vision/internal/metrics"
	"github.com/psureshmagadi17/stock-signal-vision/internal/notification"
	"github.com/psureshmagadi17/stock-signal-vision/internal/ratelimit"
	"github.com/psureshmagadi17/stock-signal-vision/internal/scheduler"
	sigpkg "github.com/psureshmagadi17/stock-signal-vision/internal/signal"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[server] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] config validation: %v", err)
	}

	slogger := logger.Init("stock-signal-vision", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slogger.Info("shutdown signal received")
		cancel()
	}()

	m := metrics.New()
	go m.Serve(ctx, cfg.Server.MetricsAddr)

	// Request journal keeps the daily quota honest across restarts.
	if err := os.MkdirAll(filepath.Dir(cfg.RateLimit.JournalPath), 0o755); err != nil {
		log.Fatalf("[server] create data dir: %v", err)
	}
	journal, err := ratelimit.OpenJournal(cfg.RateLimit.JournalPath)
	if err != nil {
		log.Fatalf("[server] open request journal: %v", err)
	}
	defer journal.Close()

	governor, err := ratelimit.New(ratelimit.Config{
		Policy:  cfg.RatePolicy(),
		Journal: journal,
	})
	if err != nil {
		log.Fatalf("[server] init rate governor: %v", err)
	}

	keys, err := keystore.Open(cfg.KeyStorePath)
	if err != nil {
		log.Fatalf("[server] open key store: %v", err)
	}
	if keystore.Valid(cfg.APIKey) {
		if err := keys.Set(cfg.APIKey); err != nil {
			log.Fatalf("[server] persist configured API key: %v", err)
		}
	}
	if keys.UsingFallback() {
		slogger.Warn("no API key configured, using provider demo key")
	}

	svcCfg := analyzer.Config{
		Provider: alphavantage.New(alphavantage.Config{
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.ProviderTimeout(),
			Proxy:   cfg.Provider.Proxy,
		}),
		Governor:    governor,
		Keys:        keys,
		Generator:   sigpkg.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano()))),
		Metrics:     m,
		Logger:      slogger,
		CallTimeout: cfg.ProviderTimeout(),
	}

	// Snapshot cache is optional: without Redis every lookup costs quota.
	if cfg.Redis.Addr != "" {
		snapCache, err := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			slogger.Warn("snapshot cache unavailable", slog.String("error", err.Error()))
		} else {
			defer snapCache.Close()
			svcCfg.Cache = snapCache
		}
	}

	svc := analyzer.New(svcCfg)

	hub := gateway.NewHub(m)
	api := gateway.NewServer(svc, hub, governor, keys, slogger)

	if len(cfg.Watchlist.Symbols) > 0 {
		var notifiers notification.Fanout
		if cfg.Notify.WebhookURL != "" {
			notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Notify.WebhookURL))
		}
		if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
			notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID))
		}
		var notifier notification.Notifier
		if len(notifiers) > 0 {
			notifier = notifiers
		}

		sched := scheduler.New(ctx, svc, hub, notifier, cfg.Watchlist.Symbols, m, slogger)
		if err := sched.Register(cfg.Watchlist.Cron); err != nil {
			log.Fatalf("[server] register watchlist cron %q: %v", cfg.Watchlist.Cron, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slogger.Info("server listening", slog.String("addr", cfg.Server.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[server] listen: %v", err)
	}
	slogger.Info("server stopped")
}
