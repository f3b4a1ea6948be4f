package service

import (
	"context"

	"SigFuse/internal/domain/models"
)

// SignalProvider computes one opinion about the instrument from recent market
// data. Implementations must be safe to call concurrently; the fusion engine
// times out slow calls and degrades them to a zero-confidence HOLD.
type SignalProvider interface {
	Name() string
	Evaluate(ctx context.Context, instrument string, snap models.MarketSnapshot) (models.SignalObservation, error)
}

// DirectionModel is the learned direction predictor blended into the fused
// decision with a fixed fraction.
type DirectionModel interface {
	Predict(ctx context.Context, snap models.MarketSnapshot) (models.ModelPrediction, error)
}

// ModifierKind selects how a context adjustment is applied.
type ModifierKind string

const (
	ConfidenceMultiplier   ModifierKind = "confidence_multiplier"
	ConfidenceDelta        ModifierKind = "confidence_delta"
	ExpectedMoveMultiplier ModifierKind = "expected_move_multiplier"
)

// ContextModifier is one bounded adjustment to the in-flight decision.
type ContextModifier struct {
	Kind   ModifierKind
	Value  float64
	Reason string
}

// DecisionState is the read-only view of the in-flight decision handed to
// context providers.
type DecisionState struct {
	Instrument   string
	Action       models.Direction
	Confidence   float64
	ExpectedMove float64
}

// ContextProvider supplies a contextual confidence/move modifier, e.g. sector
// agreement or earnings proximity. Providers are applied in registration
// order; a failing provider is skipped, never fatal to the cycle.
type ContextProvider interface {
	Name() string
	Adjust(ctx context.Context, state DecisionState) (ContextModifier, error)
}

// RegimeSource supplies the current market regime classification.
type RegimeSource interface {
	CurrentRegime(ctx context.Context) (models.RegimeContext, error)
}
