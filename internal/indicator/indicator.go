// Package indicator computes technical indicators over daily price series.
//
// All functions are pure and total: any non-negative-length input yields a
// finite result. When the series is shorter than an indicator's period the
// functions degrade to a documented neutral default instead of failing, so a
// newly listed ticker still produces a complete report.
package indicator

import "github.com/psureshmagadi17/stock-signal-vision/internal/model"

// Default periods used by the analysis pipeline.
const (
	RSIPeriod        = 14
	BollingerPeriod  = 20
	StochasticPeriod = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	VolatilityWindow = 20
)

// Compute evaluates the full indicator set for a snapshot.
func Compute(snap *model.StockSnapshot) model.IndicatorSet {
	closes := snap.Closes()
	return model.IndicatorSet{
		RSI:        RSI(closes, RSIPeriod),
		MACD:       MACD(closes),
		Bollinger:  BollingerBands(closes, BollingerPeriod),
		Stochastic: Stochastic(snap.Candles, StochasticPeriod),
		SMA20:      SMA(closes, 20),
		SMA50:      SMA(closes, 50),
		Volatility: Volatility(closes, VolatilityWindow),
	}
}
