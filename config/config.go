// Package config loads application configuration from a YAML file with
// environment variable overrides. Rate policy numbers live here, not in
// code: different provider tiers run different caps.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/psureshmagadi17/stock-signal-vision/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	Provider struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Proxy          string `yaml:"proxy"`
	} `yaml:"provider"`
	RateLimit struct {
		PerMinute        int    `yaml:"per_minute"`
		PerDay           int    `yaml:"per_day"`
		MinuteWindowSecs int    `yaml:"minute_window_seconds"`
		DayWindowSecs    int    `yaml:"day_window_seconds"`
		JournalPath      string `yaml:"journal_path"`
	} `yaml:"rate_limit"`
	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`
	Server struct {
		ListenAddr  string `yaml:"listen_addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
	Watchlist struct {
		Symbols []string `yaml:"symbols"`
		Cron    string   `yaml:"cron"`
	} `yaml:"watchlist"`
	Notify struct {
		WebhookURL       string `yaml:"webhook_url"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   string `yaml:"telegram_chat_id"`
	} `yaml:"notify"`
	KeyStorePath string `yaml:"key_store_path"`
	APIKey       string `yaml:"api_key"`
	LogLevel     string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is fine; everything has a default
// except the API key, which falls back to the provider's demo key.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Provider.Proxy = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RATE_JOURNAL_PATH"); v != "" {
		cfg.RateLimit.JournalPath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Server.MetricsAddr = v
	}
	if v := os.Getenv("RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerMinute = n
		}
	}
	if v := os.Getenv("RATE_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerDay = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}

	// Defaults
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 5
	}
	if cfg.RateLimit.PerDay == 0 {
		cfg.RateLimit.PerDay = 500
	}
	if cfg.RateLimit.MinuteWindowSecs == 0 {
		cfg.RateLimit.MinuteWindowSecs = 60
	}
	if cfg.RateLimit.DayWindowSecs == 0 {
		cfg.RateLimit.DayWindowSecs = 86400
	}
	if cfg.RateLimit.JournalPath == "" {
		cfg.RateLimit.JournalPath = "data/requests.db"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Watchlist.Cron == "" {
		cfg.Watchlist.Cron = "*/15 * * * *"
	}
	if cfg.KeyStorePath == "" {
		cfg.KeyStorePath = "data/apikey.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks the numeric policy fields for sanity.
func (c *Config) Validate() error {
	if c.RateLimit.PerMinute <= 0 || c.RateLimit.PerDay <= 0 {
		return fmt.Errorf("rate_limit caps must be positive")
	}
	if c.RateLimit.PerMinute > c.RateLimit.PerDay {
		return fmt.Errorf("rate_limit.per_minute cannot exceed per_day")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be positive")
	}
	return nil
}

// RatePolicy converts the config numbers into a governor policy.
func (c *Config) RatePolicy() ratelimit.Policy {
	return ratelimit.Policy{
		PerMinute:    c.RateLimit.PerMinute,
		PerDay:       c.RateLimit.PerDay,
		MinuteWindow: time.Duration(c.RateLimit.MinuteWindowSecs) * time.Second,
		DayWindow:    time.Duration(c.RateLimit.DayWindowSecs) * time.Second,
	}
}

// ProviderTimeout returns the per-call timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// CacheTTL returns the snapshot cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
