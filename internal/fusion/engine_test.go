package fusion

import (
	"context"
	"errors"
	"math"
	"testing"

	"SigFuse/internal/domain/models"
	domsvc "SigFuse/internal/domain/service"
)

type fakeProvider struct {
	name string
	obs  models.SignalObservation
	err  error
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Evaluate(context.Context, string, models.MarketSnapshot) (models.SignalObservation, error) {
	return f.obs, f.err
}

type fakeModel struct {
	pred models.ModelPrediction
	err  error
}

func (f fakeModel) Predict(context.Context, models.MarketSnapshot) (models.ModelPrediction, error) {
	return f.pred, f.err
}

type fakeContext struct {
	name string
	mod  domsvc.ContextModifier
	err  error
}

func (f fakeContext) Name() string { return f.name }

func (f fakeContext) Adjust(context.Context, domsvc.DecisionState) (domsvc.ContextModifier, error) {
	return f.mod, f.err
}

func provider(name string, dir models.Direction, conf, move float64) domsvc.SignalProvider {
	return fakeProvider{name: name, obs: models.SignalObservation{
		Direction:    dir,
		Strength:     conf,
		Confidence:   conf,
		ExpectedMove: move,
	}}
}

func testInput(names []string) Input {
	return Input{
		StrategyID: "conservative",
		Instrument: "AAPL",
		Weights:    models.NewEqualWeights(names),
		Thresholds: models.DecisionThresholds{
			MinSignalsAgreeing: 3,
			MinConfidence:      0.65,
			MinExpectedMove:    0.03,
		},
	}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEvaluateUnanimousBuyWithModelAgreement(t *testing.T) {
	names := []string{"s1", "s2", "s3", "s4", "s5"}
	confs := []float64{0.9, 0.8, 0.7, 0.6, 0.5}
	providers := make([]domsvc.SignalProvider, len(names))
	for i, n := range names {
		providers[i] = provider(n, models.DirectionBuy, confs[i], 0.04)
	}
	model := fakeModel{pred: models.ModelPrediction{
		Direction: models.DirectionBuy, Confidence: 0.85, ExpectedMove: 0.04,
	}}
	e := NewEngine(providers, model, nil, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Action != models.DirectionBuy {
		t.Fatalf("expected BUY, got %s", d.Action)
	}
	if d.SignalsAgreeing != 5 || d.TotalSignals != 5 {
		t.Fatalf("expected 5/5 agreeing, got %d/%d", d.SignalsAgreeing, d.TotalSignals)
	}
	// Vote confidence 0.7, blended 0.7*0.8 + 0.85*0.2 = 0.73.
	if !almost(d.Confidence, 0.73) {
		t.Fatalf("expected confidence 0.73, got %f", d.Confidence)
	}
	if !d.TradeWorthy {
		t.Fatalf("expected trade-worthy decision")
	}
}

func TestEvaluateModelDisagreementPenalty(t *testing.T) {
	names := []string{"s1", "s2", "s3", "s4", "s5"}
	confs := []float64{0.9, 0.8, 0.7, 0.6, 0.5}
	providers := make([]domsvc.SignalProvider, len(names))
	for i, n := range names {
		providers[i] = provider(n, models.DirectionBuy, confs[i], 0.04)
	}
	model := fakeModel{pred: models.ModelPrediction{
		Direction: models.DirectionSell, Confidence: 0.85, ExpectedMove: 0.04,
	}}
	e := NewEngine(providers, model, nil, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Action != models.DirectionBuy {
		t.Fatalf("expected BUY, got %s", d.Action)
	}
	// 0.7 * disagreement penalty 0.7.
	if !almost(d.Confidence, 0.49) {
		t.Fatalf("expected confidence 0.49, got %f", d.Confidence)
	}
	if d.TradeWorthy {
		t.Fatalf("penalized confidence must not be trade-worthy")
	}
}

func TestEvaluateSplitVoteHolds(t *testing.T) {
	names := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}
	providers := make([]domsvc.SignalProvider, len(names))
	for i, n := range names {
		dir := models.DirectionBuy
		if i%2 == 1 {
			dir = models.DirectionSell
		}
		providers[i] = provider(n, dir, 0.8, 0.04)
	}
	e := NewEngine(providers, nil, nil, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Action != models.DirectionHold {
		t.Fatalf("tied aggregates must HOLD, got %s", d.Action)
	}
	if d.TradeWorthy {
		t.Fatalf("HOLD is never trade-worthy")
	}
}

func TestEvaluateTotalDegradationHolds(t *testing.T) {
	names := []string{"s1", "s2", "s3"}
	providers := make([]domsvc.SignalProvider, len(names))
	for i, n := range names {
		providers[i] = fakeProvider{name: n, err: errors.New("upstream down")}
	}
	e := NewEngine(providers, fakeModel{err: errors.New("model down")}, nil, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("total degradation must still yield a decision: %v", err)
	}
	if d.Action != models.DirectionHold {
		t.Fatalf("expected HOLD, got %s", d.Action)
	}
	if d.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %f", d.Confidence)
	}
	if d.SignalsAgreeing != 0 || d.TotalSignals != 3 {
		t.Fatalf("expected 0/3 agreeing, got %d/%d", d.SignalsAgreeing, d.TotalSignals)
	}
	if len(d.IndividualSignals) != 3 {
		t.Fatalf("degraded observations must still be recorded, got %d", len(d.IndividualSignals))
	}
}

func TestEvaluateMalformedObservationDegrades(t *testing.T) {
	names := []string{"s1", "s2", "s3"}
	providers := []domsvc.SignalProvider{
		provider("s1", models.DirectionBuy, 0.9, 0.04),
		provider("s2", models.DirectionBuy, 0.8, 0.04),
		fakeProvider{name: "s3", obs: models.SignalObservation{
			Direction: "SIDEWAYS", Confidence: 0.7,
		}},
	}
	e := NewEngine(providers, nil, nil, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.SignalsAgreeing != 2 {
		t.Fatalf("malformed observation must not vote, got %d agreeing", d.SignalsAgreeing)
	}
}

func TestEvaluateBoostsOnlyAboveFloor(t *testing.T) {
	names := []string{"s1", "s2"}
	providers := []domsvc.SignalProvider{
		provider("s1", models.DirectionBuy, 0.6, 0.04),
		provider("s2", models.DirectionBuy, 0.4, 0.04),
	}
	e := NewEngine(providers, nil, nil, nil, nil, Config{})

	in := testInput(names)
	in.Boosts = models.WeightBoosts{
		Version: 1, SourceStrategy: "aggressive",
		Boosts: map[string]float64{"s1": 0.09, "s2": 0.09},
	}
	d, err := e.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// s1 boosted to 0.69, s2 under the floor stays 0.4; equal weights so the
	// vote confidence is the mean.
	want := (0.69 + 0.4) / 2
	if !almost(d.Confidence, want) {
		t.Fatalf("expected confidence %f, got %f", want, d.Confidence)
	}
}

func TestEvaluateContextModifiersBoundedAndOrdered(t *testing.T) {
	names := []string{"s1", "s2", "s3"}
	providers := []domsvc.SignalProvider{
		provider("s1", models.DirectionBuy, 0.8, 0.04),
		provider("s2", models.DirectionBuy, 0.8, 0.04),
		provider("s3", models.DirectionBuy, 0.8, 0.04),
	}
	contexts := []domsvc.ContextProvider{
		fakeContext{name: "sector_agreement", mod: domsvc.ContextModifier{
			Kind: domsvc.ConfidenceMultiplier, Value: 9.0, Reason: "sector aligned",
		}},
		fakeContext{name: "earnings_proximity", mod: domsvc.ContextModifier{
			Kind: domsvc.ConfidenceDelta, Value: -0.5, Reason: "earnings tomorrow",
		}},
		fakeContext{name: "broken", err: errors.New("lookup failed")},
	}
	e := NewEngine(providers, nil, contexts, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// Multiplier clamps to 1.5: 0.8*1.5 = 1.2 -> clamp 1.0. Delta clamps to
	// -0.2: 1.0 - 0.2 = 0.8. Failing provider is skipped.
	if !almost(d.Confidence, 0.8) {
		t.Fatalf("expected confidence 0.8, got %f", d.Confidence)
	}
	if len(d.ContextAdjustments) != 2 {
		t.Fatalf("expected 2 recorded adjustments, got %d", len(d.ContextAdjustments))
	}
}

func TestEvaluateExpectedMoveSignForSell(t *testing.T) {
	names := []string{"s1", "s2", "s3"}
	providers := []domsvc.SignalProvider{
		provider("s1", models.DirectionSell, 0.8, -0.05),
		provider("s2", models.DirectionSell, 0.8, 0.03),
		provider("s3", models.DirectionSell, 0.8, -0.04),
	}
	e := NewEngine(providers, nil, nil, nil, nil, Config{})

	d, err := e.Evaluate(context.Background(), testInput(names))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Action != models.DirectionSell {
		t.Fatalf("expected SELL, got %s", d.Action)
	}
	if !almost(d.ExpectedMove, -0.04) {
		t.Fatalf("expected move -0.04, got %f", d.ExpectedMove)
	}
}

func TestEvaluateRequiresInstrument(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil, nil, Config{})
	if _, err := e.Evaluate(context.Background(), Input{}); err == nil {
		t.Fatalf("expected error for missing instrument")
	}
}
