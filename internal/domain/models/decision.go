package models

import "time"

// CombinedDecision is the fusion output for one evaluation cycle.
// Created once per cycle and never mutated; outcomes are attached later as
// separate OutcomeRecord rows keyed by PredictionID.
type CombinedDecision struct {
	PredictionID       string              `json:"prediction_id"`
	StrategyID         string              `json:"strategy_id"`
	Instrument         string              `json:"instrument"`
	Timestamp          time.Time           `json:"timestamp"`
	Action             Direction           `json:"action"`
	Confidence         float64             `json:"confidence"`
	ExpectedMove       float64             `json:"expected_move"`
	SignalsAgreeing    int                 `json:"signals_agreeing"`
	TotalSignals       int                 `json:"total_signals"`
	IndividualSignals  []SignalObservation `json:"individual_signals"`
	TradeWorthy        bool                `json:"trade_worthy"`
	Rationale          string              `json:"rationale"`
	ContextAdjustments []string            `json:"context_adjustments"`
	// Thresholds active when the decision was made, persisted so TradeWorthy
	// can be recomputed from stored fields alone.
	Thresholds DecisionThresholds `json:"thresholds"`
}

// IsTradeWorthy recomputes the trade-worthy verdict from the decision fields
// and the given thresholds. Recomputing with the stored Thresholds must
// reproduce the stored TradeWorthy value.
func (d *CombinedDecision) IsTradeWorthy(th DecisionThresholds) bool {
	if d.Action == DirectionHold {
		return false
	}
	move := d.ExpectedMove
	if move < 0 {
		move = -move
	}
	return d.SignalsAgreeing >= th.MinSignalsAgreeing &&
		d.Confidence >= th.MinConfidence &&
		move >= th.MinExpectedMove
}
