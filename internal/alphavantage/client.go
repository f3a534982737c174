// Package alphavantage is the HTTP client for the Alpha Vantage market-data
// API. It handles transport only: request shaping, per-call timeouts, and
// lifting the provider's in-band error fields into typed errors. Rate
// admission and payload validation belong to the caller.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the public query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"

	// DefaultTimeout bounds each outbound call.
	DefaultTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL string        // defaults to DefaultBaseURL
	Timeout time.Duration // defaults to DefaultTimeout
	Proxy   string        // optional HTTP proxy URL
}

// Client fetches daily series and quotes for a symbol.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a Client with optional proxy support.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// FetchDailySeries returns the raw date-keyed daily bars for a symbol.
func (c *Client) FetchDailySeries(ctx context.Context, symbol, apiKey string) (map[string]RawBar, error) {
	var out dailyResponse
	params := url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {"compact"},
		"apikey":     {apiKey},
	}
	if err := c.get(ctx, params, &out); err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}
	if err := inBandError(out.ErrorMessage, out.Note, out.Information); err != nil {
		return nil, err
	}
	return out.Series, nil
}

// FetchQuote returns the raw current quote for a symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol, apiKey string) (RawQuote, error) {
	var out quoteResponse
	params := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
		"apikey":   {apiKey},
	}
	if err := c.get(ctx, params, &out); err != nil {
		return RawQuote{}, fmt.Errorf("quote: %w", err)
	}
	if err := inBandError(out.ErrorMessage, out.Note, out.Information); err != nil {
		return RawQuote{}, err
	}
	return out.Quote, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// inBandError lifts the provider's 200-status error fields into typed
// errors so callers never have to re-parse free text.
func inBandError(errMsg, note, info string) error {
	if errMsg != "" {
		return &APIError{Message: errMsg}
	}
	if note != "" {
		return &QuotaNote{Message: note}
	}
	if info != "" {
		return &QuotaNote{Message: info}
	}
	return nil
}
