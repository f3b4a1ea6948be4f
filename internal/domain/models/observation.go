package models

// Direction is a signal's opinion about price direction.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// IsValid reports whether d is one of the three known directions.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionHold:
		return true
	default:
		return false
	}
}

// SignalObservation is one opinion from one source at one instant.
// Immutable once created; produced by a SignalProvider or the DirectionModel.
type SignalObservation struct {
	SignalName         string    `json:"signal_name"`
	Direction          Direction `json:"direction"`
	Strength           float64   `json:"strength"`   // [0,1]
	Confidence         float64   `json:"confidence"` // [0,1]
	ExpectedMove       float64   `json:"expected_move"` // signed fraction, +0.04 = +4%
	Rationale          string    `json:"rationale"`
	WeightAtEvaluation float64   `json:"weight_at_evaluation"`
}

// DegradedObservation builds the synthetic HOLD observation used when a
// provider fails or times out. It carries zero weight in aggregation.
func DegradedObservation(signalName, reason string) SignalObservation {
	return SignalObservation{
		SignalName:         signalName,
		Direction:          DirectionHold,
		Strength:           0,
		Confidence:         0,
		ExpectedMove:       0,
		Rationale:          "degraded: " + reason,
		WeightAtEvaluation: 0,
	}
}

// ModelPrediction is the DirectionModel's output for one snapshot.
type ModelPrediction struct {
	Direction    Direction `json:"direction"`
	Confidence   float64   `json:"confidence"`
	ExpectedMove float64   `json:"expected_move"`
}
