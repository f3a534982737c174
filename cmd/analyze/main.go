// cmd/analyze runs a single analysis from the command line and prints the
// report as JSON. It shares the request journal with the server, so CLI
// runs are charged against the same daily quota.
//
// Usage:
//
//	go run ./cmd/analyze -symbol AAPL -retries 2
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/psureshmagadi17/stock-signal-vision/config"
	"github.com/psureshmagadi17/stock-signal-vision/internal/alphavantage"
	"github.com/psureshmagadi17/stock-signal-vision/internal/analyzer"
	"github.com/psureshmagadi17/stock-signal-vision/internal/keystore"
	"github.com/psureshmagadi17/stock-signal-vision/internal/logger"
	"github.com/psureshmagadi17/stock-signal-vision/internal/ratelimit"
	"github.com/psureshmagadi17/stock-signal-vision/internal/signal"
)

func main() {
	symbol := flag.String("symbol", "", "Ticker symbol to analyze (required)")
	cfgPath := flag.String("config", "configs/config.yaml", "Path to config file")
	retries := flag.Int("retries", 1, "Attempts for retryable failures")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[analyze] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[analyze] config validation: %v", err)
	}

	logger.Init("analyze-cli", slog.LevelWarn)

	if err := os.MkdirAll(filepath.Dir(cfg.RateLimit.JournalPath), 0o755); err != nil {
		log.Fatalf("[analyze] create data dir: %v", err)
	}
	journal, err := ratelimit.OpenJournal(cfg.RateLimit.JournalPath)
	if err != nil {
		log.Fatalf("[analyze] open request journal: %v", err)
	}
	defer journal.Close()

	governor, err := ratelimit.New(ratelimit.Config{
		Policy:  cfg.RatePolicy(),
		Journal: journal,
	})
	if err != nil {
		log.Fatalf("[analyze] init rate governor: %v", err)
	}

	keys, err := keystore.Open(cfg.KeyStorePath)
	if err != nil {
		log.Fatalf("[analyze] open key store: %v", err)
	}
	if keystore.Valid(cfg.APIKey) {
		if err := keys.Set(cfg.APIKey); err != nil {
			log.Fatalf("[analyze] persist configured API key: %v", err)
		}
	}

	svc := analyzer.New(analyzer.Config{
		Provider: alphavantage.New(alphavantage.Config{
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.ProviderTimeout(),
			Proxy:   cfg.Provider.Proxy,
		}),
		Governor:    governor,
		Keys:        keys,
		Generator:   signal.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano()))),
		CallTimeout: cfg.ProviderTimeout(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := svc.AnalyzeWithRetry(ctx, *symbol, *retries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed (%s): %v\n", analyzer.KindOf(err), err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("[analyze] marshal report: %v", err)
	}
	fmt.Println(string(out))
}
