package indicator

import "github.com/psureshmagadi17/stock-signal-vision/internal/model"

// Stochastic computes the %K oscillator: where the latest close sits within
// the high/low range of the last `period` candles, in [0,100]. Returns the
// neutral 50 when fewer than `period` candles exist or when the range is
// zero (flat high/low would otherwise divide by zero).
func Stochastic(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 50.0
	}

	recent := candles[len(candles)-period:]
	highest := recent[0].High
	lowest := recent[0].Low
	for _, c := range recent[1:] {
		if c.High > highest {
			highest = c.High
		}
		if c.Low < lowest {
			lowest = c.Low
		}
	}

	if highest == lowest {
		return 50.0
	}

	lastClose := candles[len(candles)-1].Close
	return 100.0 * (lastClose - lowest) / (highest - lowest)
}
