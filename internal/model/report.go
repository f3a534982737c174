package model

import "time"

// Confidence grades how well the indicators agree with each other.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// BollingerBands holds the three band values. Invariant: Upper >= Middle >= Lower.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSet is the full set of technical indicators computed for one
// snapshot. Values are computed fresh per snapshot and never mutated.
type IndicatorSet struct {
	RSI        float64        `json:"rsi"`        // [0,100]
	MACD       float64        `json:"macd"`       // unbounded sign
	Bollinger  BollingerBands `json:"bollinger"`  // upper >= middle >= lower
	Stochastic float64        `json:"stochastic"` // [0,100]
	SMA20      float64        `json:"sma20"`
	SMA50      float64        `json:"sma50"`
	Volatility float64        `json:"volatility"`
}

// BuyLevel is a suggested entry price with an upside target.
type BuyLevel struct {
	Price       float64 `json:"price"`
	Probability int     `json:"probability"` // [0,100]
	Upside      int     `json:"upside"`      // expected upside percent
	Target      float64 `json:"target"`
}

// SellLevel is a suggested exit price with a protective stop.
type SellLevel struct {
	Price       float64 `json:"price"`
	Probability int     `json:"probability"` // [0,100]
	Downside    int     `json:"downside"`    // expected downside percent
	StopLoss    float64 `json:"stopLoss"`
}

// AnalysisReport is the final output of one analysis run. Immutable once
// produced; its lifetime is bound to the caller that requested it.
type AnalysisReport struct {
	Symbol             string       `json:"symbol"`
	Confidence         Confidence   `json:"confidence"`
	SuccessProbability int          `json:"successProbability"` // [0,100]
	RiskScore          int          `json:"riskScore"`          // [0,10]
	CurrentSignal      string       `json:"currentSignal"`
	Recommendation     string       `json:"recommendation"`
	BuyLevels          []BuyLevel   `json:"buyLevels"`
	SellLevels         []SellLevel  `json:"sellLevels"`
	Indicators         IndicatorSet `json:"technicalIndicators"`
	Snapshot           Quote        `json:"quote"`
	GeneratedAt        time.Time    `json:"generatedAt"`
}
