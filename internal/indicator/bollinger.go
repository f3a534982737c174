package indicator

import "github.com/psureshmagadi17/stock-signal-vision/internal/model"

// BollingerBands computes a simple moving average flanked by two population
// standard deviations over the last `period` closes. Shorter series operate
// on whatever slice is available; the bands narrow toward the mean as the
// sample shrinks. Invariant: Upper >= Middle >= Lower.
func BollingerBands(closes []float64, period int) model.BollingerBands {
	if len(closes) == 0 || period <= 0 {
		return model.BollingerBands{}
	}
	recent := closes
	if len(recent) > period {
		recent = recent[len(recent)-period:]
	}

	sma := mean(recent)
	sigma := stddev(recent)
	return model.BollingerBands{
		Upper:  sma + 2*sigma,
		Middle: sma,
		Lower:  sma - 2*sigma,
	}
}
