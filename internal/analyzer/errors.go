package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/psureshmagadi17/stock-signal-vision/internal/alphavantage"
	"github.com/psureshmagadi17/stock-signal-vision/internal/normalize"
)

// Kind classifies an analysis failure. The string values double as API
// error codes and metric labels.
type Kind string

const (
	KindInvalidSymbol    Kind = "invalid_symbol"    // bad syntax, no network or quota cost
	KindRateLimited      Kind = "rate_limited"      // governor denied admission, no network attempted
	KindNoData           Kind = "no_data"           // provider has nothing for a valid symbol
	KindMalformedPayload Kind = "malformed_payload" // provider field failed to parse
	KindUpstream         Kind = "upstream_error"    // provider-reported error or quota note
	KindTimeout          Kind = "network_timeout"   // no response within the deadline; retryable
	KindTransport        Kind = "transport_error"   // connection-level failure
)

// Error is the single failure type the orchestrator hands to callers. It
// carries the symbol, the classified kind, and for rate limiting a wait
// hint. The underlying cause is preserved for errors.Is/As.
type Error struct {
	Kind       Kind
	Symbol     string
	RetryAfter time.Duration // set for KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analyze %s: %s", e.Symbol, e.Kind)
	}
	return fmt.Sprintf("analyze %s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, or "" for nil / foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Retryable reports whether a failure is worth retrying: timeouts and
// transport failures may clear on their own, rate limiting clears once the
// window moves. Everything else is deterministic.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindTransport, KindRateLimited:
		return true
	}
	return false
}

// classify translates a pipeline failure into a typed Error for a symbol.
func classify(symbol string, err error) *Error {
	var (
		symErr   *normalize.SymbolError
		fieldErr *normalize.FieldError
		apiErr   *alphavantage.APIError
		quota    *alphavantage.QuotaNote
		netErr   net.Error
	)
	switch {
	case errors.As(err, &symErr):
		return &Error{Kind: KindInvalidSymbol, Symbol: symbol, Err: err}
	case errors.Is(err, normalize.ErrNoData):
		return &Error{Kind: KindNoData, Symbol: symbol, Err: err}
	case errors.As(err, &fieldErr):
		return &Error{Kind: KindMalformedPayload, Symbol: symbol, Err: err}
	case errors.As(err, &apiErr), errors.As(err, &quota):
		return &Error{Kind: KindUpstream, Symbol: symbol, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Symbol: symbol, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Symbol: symbol, Err: err}
	default:
		return &Error{Kind: KindTransport, Symbol: symbol, Err: err}
	}
}
