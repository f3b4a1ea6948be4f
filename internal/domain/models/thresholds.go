package models

import "time"

// DecisionThresholds is the bar a decision must clear to be trade-worthy.
// Always derived fresh from a base plus a regime-dependent delta; never
// mutated in place.
type DecisionThresholds struct {
	MinSignalsAgreeing int     `json:"min_signals_agreeing"`
	MinConfidence      float64 `json:"min_confidence"`
	MinExpectedMove    float64 `json:"min_expected_move"`
}

// Trend regime labels supplied by the external regime classifier.
const (
	TrendStrongBull = "strong_bull"
	TrendBull       = "bull"
	TrendSideways   = "sideways"
	TrendChoppy     = "choppy"
	TrendBear       = "bear"
	TrendStrongBear = "strong_bear"
)

// Volatility regime labels.
const (
	VolatilityHigh   = "high"
	VolatilityNormal = "normal"
	VolatilityLow    = "low"
)

// RegimeContext is a read-only snapshot of market conditions for one cycle.
type RegimeContext struct {
	TrendRegime      string    `json:"trend_regime"`
	VolatilityRegime string    `json:"volatility_regime"`
	RegimeConfidence float64   `json:"regime_confidence"`
	Timestamp        time.Time `json:"timestamp"`
}
