package indicator

import "math"

// SMA computes the simple moving average of the last `period` closes,
// or of the whole series when it is shorter than the period.
func SMA(closes []float64, period int) float64 {
	if len(closes) == 0 || period <= 0 {
		return 0
	}
	if len(closes) > period {
		closes = closes[len(closes)-period:]
	}
	return mean(closes)
}

// EMA computes the exponential moving average, seeded with the simple
// average of the first `period` values and rolled forward with multiplier
// 2/(period+1). When fewer than `period` values exist it returns the last
// available close — an approximation, not a statistically rigorous EMA.
func EMA(closes []float64, period int) float64 {
	if len(closes) == 0 || period <= 0 {
		return 0
	}
	if len(closes) < period {
		return closes[len(closes)-1]
	}

	multiplier := 2.0 / float64(period+1)
	ema := mean(closes[:period])
	for _, price := range closes[period:] {
		ema = price*multiplier + ema*(1-multiplier)
	}
	return ema
}

// MACD is the difference between the 12- and 26-period EMAs.
// Returns 0 when the series is too short for the slow EMA.
func MACD(closes []float64) float64 {
	if len(closes) < MACDSlowPeriod {
		return 0
	}
	return EMA(closes, MACDFastPeriod) - EMA(closes, MACDSlowPeriod)
}

// Volatility is the population standard deviation of the last `window` closes.
func Volatility(closes []float64, window int) float64 {
	if len(closes) == 0 || window <= 0 {
		return 0
	}
	if len(closes) > window {
		closes = closes[len(closes)-window:]
	}
	return stddev(closes)
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		d := x - m
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
