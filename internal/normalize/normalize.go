// Package normalize validates raw provider payloads and reshapes them into
// ordered, fully parsed StockSnapshots. It is the only place string-encoded
// provider numbers are turned into typed values; a parse failure anywhere is
// surfaced as a FieldError naming the offending date and field rather than
// letting a NaN propagate into the indicators.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/psureshmagadi17/stock-signal-vision/internal/alphavantage"
	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
)

// MaxDays is the retention window: only the most recent trading days enter
// the pipeline, older bars are discarded here.
const MaxDays = 60

var symbolRe = regexp.MustCompile(`^[A-Z]{1,5}$`)

// ErrNoData means the provider returned an empty series or quote for a
// syntactically valid symbol. That is how it encodes "symbol not found".
var ErrNoData = errors.New("no data for symbol")

// SymbolError reports a syntactically invalid ticker symbol.
type SymbolError struct {
	Symbol string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("invalid symbol %q: want 1-5 uppercase letters", e.Symbol)
}

// FieldError reports a provider field that failed to parse.
type FieldError struct {
	Date  string // empty for quote fields
	Field string
	Value string
}

func (e *FieldError) Error() string {
	if e.Date == "" {
		return fmt.Sprintf("malformed quote field %q: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("malformed field %q on %s: %q", e.Field, e.Date, e.Value)
}

// ValidateSymbol checks symbol syntax. Call before any network work so a
// bad symbol never costs quota.
func ValidateSymbol(symbol string) error {
	if !symbolRe.MatchString(symbol) {
		return &SymbolError{Symbol: symbol}
	}
	return nil
}

// Snapshot builds a StockSnapshot from the raw daily series and quote.
// Dates are sorted ascending and trimmed to the last MaxDays trading days;
// the close series and candle series stay parallel.
func Snapshot(symbol string, series map[string]alphavantage.RawBar, quote alphavantage.RawQuote) (*model.StockSnapshot, error) {
	if len(series) == 0 || quote.Empty() {
		return nil, ErrNoData
	}

	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > MaxDays {
		dates = dates[len(dates)-MaxDays:]
	}

	closes := make([]float64, 0, len(dates))
	candles := make([]model.Candle, 0, len(dates))
	for _, date := range dates {
		bar := series[date]
		open, err := parseFloat(date, "1. open", bar.Open)
		if err != nil {
			return nil, err
		}
		high, err := parseFloat(date, "2. high", bar.High)
		if err != nil {
			return nil, err
		}
		low, err := parseFloat(date, "3. low", bar.Low)
		if err != nil {
			return nil, err
		}
		closePx, err := parseFloat(date, "4. close", bar.Close)
		if err != nil {
			return nil, err
		}
		volume, err := parseInt(date, "5. volume", bar.Volume)
		if err != nil {
			return nil, err
		}

		closes = append(closes, closePx)
		candles = append(candles, model.Candle{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}

	q, err := parseQuote(quote)
	if err != nil {
		return nil, err
	}

	return &model.StockSnapshot{
		Symbol:           symbol,
		Quote:            q,
		MarketCap:        estimateMarketCap(q.CurrentPrice),
		HistoricalPrices: closes,
		Candles:          candles,
	}, nil
}

func parseQuote(raw alphavantage.RawQuote) (model.Quote, error) {
	price, err := parseFloat("", "05. price", raw.Price)
	if err != nil {
		return model.Quote{}, err
	}
	change, err := parseFloat("", "09. change", raw.Change)
	if err != nil {
		return model.Quote{}, err
	}
	pct, err := parseFloat("", "10. change percent", strings.TrimSuffix(raw.ChangePercent, "%"))
	if err != nil {
		return model.Quote{}, err
	}
	volume, err := parseInt("", "06. volume", raw.Volume)
	if err != nil {
		return model.Quote{}, err
	}
	return model.Quote{
		CurrentPrice:  price,
		Change:        change,
		ChangePercent: pct,
		Volume:        volume,
	}, nil
}

func parseFloat(date, field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &FieldError{Date: date, Field: field, Value: value}
	}
	return f, nil
}

func parseInt(date, field, value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, &FieldError{Date: date, Field: field, Value: value}
	}
	return n, nil
}

// estimateMarketCap mirrors the rough single-call estimate the product has
// always shown; an accurate figure would need a separate fundamentals call.
func estimateMarketCap(price float64) string {
	return fmt.Sprintf("$%.1fB", price)
}
