package models

import "time"

// OutcomeRecord is the realized market result attached to a past
// CombinedDecision. Append-only; used only by the weight learner.
type OutcomeRecord struct {
	PredictionID  string             `json:"prediction_id"`
	Instrument    string             `json:"instrument"`
	RealizedMoves map[string]float64 `json:"realized_moves"` // horizon label -> signed fraction
	RecordedAt    time.Time          `json:"recorded_at"`
}

// SignalOutcome is one signal's vote joined with the realized move at the
// evaluation horizon, as read back from the decision store for scoring.
type SignalOutcome struct {
	PredictionID  string    `json:"prediction_id"`
	SignalName    string    `json:"signal_name"`
	Direction     Direction `json:"direction"`
	Confidence    float64   `json:"confidence"`
	PredictedMove float64   `json:"predicted_move"`
	RealizedMove  float64   `json:"realized_move"`
	HasOutcome    bool      `json:"has_outcome"`
	Timestamp     time.Time `json:"timestamp"`
}

// ExecutionReport is what the execution collaborator sends back after a
// filled trade settles: the entry price plus marks at the tracked horizons.
// It is translated into an OutcomeRecord and a closed BucketTrade.
type ExecutionReport struct {
	PredictionID string             `json:"prediction_id"`
	StrategyID   string             `json:"strategy_id"`
	Instrument   string             `json:"instrument"`
	EntryPrice   float64            `json:"entry_price"`
	Marks        map[string]float64 `json:"marks"` // horizon label -> mark price
	PnL          string             `json:"pnl"`   // decimal string, signed
	Confidence   float64            `json:"confidence"`
	ExpectedMove float64            `json:"expected_move"`
	Signals      []string           `json:"signals"` // names of agreeing signals
	ClosedAt     time.Time          `json:"closed_at"`
}
