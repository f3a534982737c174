package model

// Candle represents one daily OHLCV bar for a symbol.
type Candle struct {
	Date   string  `json:"date"` // trading day, "YYYY-MM-DD"
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Quote is a point-in-time price snapshot, separate from the daily series.
type Quote struct {
	CurrentPrice  float64 `json:"currentPrice"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
}

// StockSnapshot combines the latest quote with up to 60 days of history.
// HistoricalPrices and Candles are parallel views of the same trading days,
// oldest first. A snapshot belongs to the analysis that created it and is
// never shared across requests.
type StockSnapshot struct {
	Symbol           string    `json:"symbol"`
	Quote            Quote     `json:"quote"`
	MarketCap        string    `json:"marketCap"`
	HistoricalPrices []float64 `json:"historicalPrices"`
	Candles          []Candle  `json:"candlestickData"`
}

// Closes returns the chronological close series.
func (s *StockSnapshot) Closes() []float64 {
	return s.HistoricalPrices
}
