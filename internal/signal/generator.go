// Package signal turns an indicator set plus a snapshot into the final
// buy/sell report: confidence grade, probability and risk bands, price
// levels, and a textual signal.
package signal

import (
	"math/rand"
	"sync"
	"time"

	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
)

// Generator produces AnalysisReports. The random source is injectable so
// tests can pin the banded probability draws; production uses a time seed.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator. A nil rng gets a time-seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Report builds the full analysis report for one snapshot.
func (g *Generator) Report(snap *model.StockSnapshot, ind model.IndicatorSet) *model.AnalysisReport {
	price := snap.Quote.CurrentPrice
	confidence, probability, risk := g.score(ind, price)
	signalText, recommendation := classify(ind, price)

	return &model.AnalysisReport{
		Symbol:             snap.Symbol,
		Confidence:         confidence,
		SuccessProbability: probability,
		RiskScore:          risk,
		CurrentSignal:      signalText,
		Recommendation:     recommendation,
		BuyLevels:          g.buyLevels(price, ind.Bollinger),
		SellLevels:         g.sellLevels(price, ind.Bollinger),
		Indicators:         ind,
		Snapshot:           snap.Quote,
		GeneratedAt:        time.Now().UTC(),
	}
}

// score averages four agreement checks and maps the result onto a
// confidence tier. Probability and risk are drawn uniformly within the
// tier's documented band; the band boundaries are the contract, not the
// individual draw.
func (g *Generator) score(ind model.IndicatorSet, price float64) (model.Confidence, int, int) {
	rsiScore := 0.5
	if ind.RSI >= 30 && ind.RSI <= 70 {
		rsiScore = 1.0
	}
	macdScore := 0.7
	if ind.MACD > -2 && ind.MACD < 2 {
		macdScore = 1.0
	}
	bandScore := 0.6
	if price >= ind.Bollinger.Lower && price <= ind.Bollinger.Upper {
		bandScore = 1.0
	}
	stochScore := 0.5
	if ind.Stochastic >= 20 && ind.Stochastic <= 80 {
		stochScore = 1.0
	}

	avg := (rsiScore + macdScore + bandScore + stochScore) / 4

	switch {
	case avg > 0.8:
		return model.ConfidenceHigh, g.draw(75, 95), g.draw(2, 5)
	case avg > 0.6:
		return model.ConfidenceMedium, g.draw(55, 80), g.draw(4, 8)
	default:
		return model.ConfidenceLow, g.draw(35, 60), g.draw(6, 10)
	}
}

// buyLevels suggests two entries: one at the lower Bollinger band targeting
// the middle band, one at a 5% pullback targeting a 12% gain.
func (g *Generator) buyLevels(price float64, bands model.BollingerBands) []model.BuyLevel {
	return []model.BuyLevel{
		{
			Price:       bands.Lower,
			Probability: g.draw(70, 85),
			Upside:      g.draw(10, 25),
			Target:      bands.Middle,
		},
		{
			Price:       price * 0.95,
			Probability: g.draw(60, 80),
			Upside:      g.draw(8, 20),
			Target:      price * 1.12,
		},
	}
}

// sellLevels suggests two exits: one at the upper Bollinger band with the
// middle band as stop, one at a 5% rally with an 8% protective stop.
func (g *Generator) sellLevels(price float64, bands model.BollingerBands) []model.SellLevel {
	return []model.SellLevel{
		{
			Price:       bands.Upper,
			Probability: g.draw(65, 85),
			Downside:    g.draw(8, 18),
			StopLoss:    bands.Middle,
		},
		{
			Price:       price * 1.05,
			Probability: g.draw(55, 70),
			Downside:    g.draw(12, 20),
			StopLoss:    price * 0.92,
		},
	}
}

// draw returns a uniform int in [lo, hi). rand.Rand is not goroutine-safe,
// so draws are serialized.
func (g *Generator) draw(lo, hi int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rng.Intn(hi-lo)
}

// classify walks a fixed decision list top-down; the first match wins.
func classify(ind model.IndicatorSet, price float64) (string, string) {
	switch {
	case ind.RSI < 30 && price <= ind.Bollinger.Lower:
		return "Strong Buy — oversold with band support.",
			"Multiple indicators suggest oversold conditions. High probability bounce expected."
	case ind.RSI > 70 && price >= ind.Bollinger.Upper:
		return "Strong Sell — overbought with band resistance.",
			"Multiple indicators suggest overbought conditions. Consider taking profits."
	case ind.MACD > 0 && ind.RSI > 50:
		return "Bullish momentum.",
			"Positive momentum indicators suggest potential upward movement."
	case ind.MACD < 0 && ind.RSI < 50:
		return "Bearish momentum.",
			"Negative momentum indicators suggest potential downward pressure."
	default:
		return "Neutral — mixed signals.",
			"Technical indicators are mixed. Wait for clearer directional signals."
	}
}
