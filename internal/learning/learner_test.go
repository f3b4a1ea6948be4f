package learning

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"SigFuse/internal/domain/models"
)

type fakeStore struct {
	history map[string][]models.SignalOutcome
	histErr map[string]error
	saved   []*models.CombinedDecision
	saveErr error
}

func (s *fakeStore) Init(context.Context) error { return nil }

func (s *fakeStore) SaveDecision(_ context.Context, d *models.CombinedDecision) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, d)
	return nil
}

func (s *fakeStore) AttachOutcome(context.Context, *models.OutcomeRecord) error { return nil }

func (s *fakeStore) GetDecision(context.Context, string) (*models.CombinedDecision, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) LatestDecisions(context.Context, string, int) ([]models.CombinedDecision, error) {
	return nil, nil
}

func (s *fakeStore) DecisionsRange(context.Context, string, time.Time, time.Time, int) ([]models.CombinedDecision, error) {
	return nil, nil
}

func (s *fakeStore) SignalHistory(_ context.Context, name string, _, _ time.Time) ([]models.SignalOutcome, error) {
	if err, ok := s.histErr[name]; ok {
		return nil, err
	}
	return s.history[name], nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

func outcomes(n int, dir models.Direction, realized, conf float64) []models.SignalOutcome {
	out := make([]models.SignalOutcome, n)
	for i := range out {
		out[i] = models.SignalOutcome{
			SignalName:    "x",
			Direction:     dir,
			Confidence:    conf,
			PredictedMove: 0.04,
			RealizedMove:  realized,
			HasOutcome:    true,
			Timestamp:     time.Now(),
		}
	}
	return out
}

func equalBaseline(names ...string) map[string]float64 {
	m := make(map[string]float64, len(names))
	for _, n := range names {
		m[n] = 1.0 / float64(len(names))
	}
	return m
}

func TestNewLearnerSeedsBaseline(t *testing.T) {
	l, err := NewLearner(&fakeStore{}, equalBaseline("a", "b", "c", "d"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}
	v := l.Snapshot()
	if err := v.Validate(); err != nil {
		t.Fatalf("baseline vector invalid: %v", err)
	}
	if math.Abs(v.WeightOf("a")-0.25) > 1e-9 {
		t.Fatalf("expected equal baseline, got %f", v.WeightOf("a"))
	}
}

func TestNewLearnerRejectsBadBaseline(t *testing.T) {
	if _, err := NewLearner(&fakeStore{}, map[string]float64{"a": -1}, nil, nil, Config{}); err == nil {
		t.Fatalf("expected error for negative baseline weight")
	}
}

func TestRecomputeShiftsTowardAccurateSignal(t *testing.T) {
	// good is always right at full magnitude; bad votes the wrong way on
	// small moves with low confidence. The other two signals have no history
	// and keep their baseline.
	store := &fakeStore{history: map[string][]models.SignalOutcome{
		"good": outcomes(10, models.DirectionBuy, 0.05, 0.8),
		"bad":  outcomes(10, models.DirectionBuy, -0.015, 0.3),
	}}
	l, err := NewLearner(store, equalBaseline("good", "bad", "s3", "s4"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}

	next, err := l.RecomputeWeights(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if err := next.Validate(); err != nil {
		t.Fatalf("recomputed vector invalid: %v", err)
	}
	if next.WeightOf("good") <= next.WeightOf("bad") {
		t.Fatalf("accurate signal must outweigh inaccurate: good=%f bad=%f",
			next.WeightOf("good"), next.WeightOf("bad"))
	}
	if l.Snapshot() != next {
		t.Fatalf("recomputed vector must be the active snapshot")
	}
}

func TestRecomputeBoundedPerCycle(t *testing.T) {
	store := &fakeStore{history: map[string][]models.SignalOutcome{
		"good": outcomes(10, models.DirectionBuy, 0.05, 0.8),
		"bad":  outcomes(10, models.DirectionBuy, -0.015, 0.3),
	}}
	l, err := NewLearner(store, equalBaseline("good", "bad", "s3", "s4"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}

	next, err := l.RecomputeWeights(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	// Pre-normalization change per signal is capped at 20% relative, so the
	// bad/good ratio cannot fall under 0.8/1.0 of the equal baseline in one
	// recompute.
	if ratio := next.WeightOf("bad") / next.WeightOf("good"); ratio < 0.8-1e-9 {
		t.Fatalf("weights moved faster than the cap allows, ratio %f", ratio)
	}
}

func TestRecomputeInsufficientSamplesKeepsWeight(t *testing.T) {
	store := &fakeStore{history: map[string][]models.SignalOutcome{
		"thin":  outcomes(2, models.DirectionBuy, -0.05, 0.9), // wrong but too few
		"other": outcomes(10, models.DirectionBuy, 0.05, 0.7),
	}}
	l, err := NewLearner(store, equalBaseline("thin", "other"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}

	next, err := l.RecomputeWeights(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	// thin entered normalization at its previous 0.5; it may only shrink via
	// normalization against the other signal's capped gain.
	if next.WeightOf("thin") < 0.4-1e-9 {
		t.Fatalf("insufficient samples must not be punished: %f", next.WeightOf("thin"))
	}
}

func TestRecomputeHistoryErrorKeepsWeight(t *testing.T) {
	store := &fakeStore{
		history: map[string][]models.SignalOutcome{
			"ok": outcomes(10, models.DirectionBuy, 0.05, 0.7),
		},
		histErr: map[string]error{"down": errors.New("store timeout")},
	}
	l, err := NewLearner(store, equalBaseline("ok", "down"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}

	next, err := l.RecomputeWeights(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if err := next.Validate(); err != nil {
		t.Fatalf("vector invalid after partial read failure: %v", err)
	}
	if next.WeightOf("down") <= 0 {
		t.Fatalf("unreadable signal must keep a live weight, got %f", next.WeightOf("down"))
	}
}

func TestRecordSurfacesPersistFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	l, err := NewLearner(store, equalBaseline("a"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}

	d := &models.CombinedDecision{PredictionID: "p-1"}
	id, err := l.Record(context.Background(), d)
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if id != "p-1" {
		t.Fatalf("prediction id must survive persist failure, got %q", id)
	}
}

func TestAttachOutcomeRequiresPredictionID(t *testing.T) {
	l, err := NewLearner(&fakeStore{}, equalBaseline("a"), nil, nil, Config{})
	if err != nil {
		t.Fatalf("new learner: %v", err)
	}
	if err := l.AttachOutcome(context.Background(), &models.OutcomeRecord{}); err == nil {
		t.Fatalf("expected error for missing prediction id")
	}
}
