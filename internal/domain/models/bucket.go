package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrailingPerformance summarizes a bucket's realized results over the
// trailing ranking window.
type TrailingPerformance struct {
	WinRate    float64         `json:"win_rate"`
	AvgPnL     decimal.Decimal `json:"avg_pnl"` // per trade
	TradeCount int             `json:"trade_count"`
}

// WeightBoosts holds cross-learned additive confidence boosts keyed by source
// signal. Versioned: a new propagation replaces the whole set, boosts from a
// no-longer-top performer never stack.
type WeightBoosts struct {
	Version        int64              `json:"version"`
	SourceStrategy string             `json:"source_strategy"`
	Boosts         map[string]float64 `json:"boosts"`
}

// TeachablePattern is what the top-ranked bucket teaches the pool: averages
// over its winning trades.
type TeachablePattern struct {
	StrategyID          string  `json:"strategy_id"`
	AvgWinnerConfidence float64 `json:"avg_winner_confidence"`
	AvgWinnerMove       float64 `json:"avg_winner_move"`
	Version             int64   `json:"version"`
}

// StrategyBucket is one independently configured instance of the fusion
// logic. Balance is mutated by settlement, boosts by the coordinator; buckets
// are never deleted during normal operation.
type StrategyBucket struct {
	StrategyID     string              `json:"strategy_id"`
	BaseThresholds DecisionThresholds  `json:"base_thresholds"`
	InitialCapital decimal.Decimal     `json:"initial_capital"`
	CapitalBalance decimal.Decimal     `json:"capital_balance"`
	OpenPositions  int                 `json:"open_positions"`
	Trailing       TrailingPerformance `json:"trailing_performance"`
	Boosts         WeightBoosts        `json:"weight_boosts"`
	Degraded       bool                `json:"degraded"`
}

// BucketTrade is one settled trade attributed to a bucket, kept in the
// trailing window for ranking and pattern extraction.
type BucketTrade struct {
	StrategyID   string          `json:"strategy_id"`
	PredictionID string          `json:"prediction_id"`
	Confidence   float64         `json:"confidence"`
	ExpectedMove float64         `json:"expected_move"`
	PnL          decimal.Decimal `json:"pnl"`
	Signals      []string        `json:"signals"`
	ClosedAt     time.Time       `json:"closed_at"`
}

// BucketRank is one row of the coordinator's ranking output.
type BucketRank struct {
	StrategyID string          `json:"strategy_id"`
	AvgPnL     decimal.Decimal `json:"avg_pnl"`
	WinRate    float64         `json:"win_rate"`
	TradeCount int             `json:"trade_count"`
}
