package regime

import (
	"context"
	"errors"
	"math"
	"testing"

	"SigFuse/internal/domain/models"
)

var base = models.DecisionThresholds{
	MinSignalsAgreeing: 3,
	MinConfidence:      0.80,
	MinExpectedMove:    0.03,
}

func TestDeriveStrongTrendLoosens(t *testing.T) {
	got := Derive(base, models.RegimeContext{
		TrendRegime: models.TrendStrongBull, VolatilityRegime: models.VolatilityNormal,
	})
	if got.MinSignalsAgreeing != 2 {
		t.Fatalf("expected 2 signals, got %d", got.MinSignalsAgreeing)
	}
	if math.Abs(got.MinConfidence-0.70) > 1e-9 {
		t.Fatalf("expected confidence 0.70, got %f", got.MinConfidence)
	}
	if got.MinExpectedMove != base.MinExpectedMove {
		t.Fatalf("move threshold must be untouched, got %f", got.MinExpectedMove)
	}
}

func TestDeriveChoppyTightens(t *testing.T) {
	got := Derive(base, models.RegimeContext{
		TrendRegime: models.TrendChoppy, VolatilityRegime: models.VolatilityNormal,
	})
	if got.MinSignalsAgreeing != 4 {
		t.Fatalf("expected 4 signals, got %d", got.MinSignalsAgreeing)
	}
	if math.Abs(got.MinConfidence-0.90) > 1e-9 {
		t.Fatalf("expected confidence 0.90, got %f", got.MinConfidence)
	}
}

func TestDeriveConfidenceCeiling(t *testing.T) {
	b := base
	b.MinConfidence = 0.85
	got := Derive(b, models.RegimeContext{TrendRegime: models.TrendSideways})
	if math.Abs(got.MinConfidence-0.90) > 1e-9 {
		t.Fatalf("confidence must cap at 0.90, got %f", got.MinConfidence)
	}
}

func TestDeriveSignalsFloor(t *testing.T) {
	b := base
	b.MinSignalsAgreeing = 2
	got := Derive(b, models.RegimeContext{TrendRegime: models.TrendStrongBear})
	if got.MinSignalsAgreeing != 2 {
		t.Fatalf("signals must floor at 2, got %d", got.MinSignalsAgreeing)
	}
}

func TestDeriveVolatilityDeltas(t *testing.T) {
	got := Derive(base, models.RegimeContext{VolatilityRegime: models.VolatilityHigh})
	if math.Abs(got.MinExpectedMove-0.02) > 1e-9 {
		t.Fatalf("expected move floor 0.02, got %f", got.MinExpectedMove)
	}
	got = Derive(base, models.RegimeContext{VolatilityRegime: models.VolatilityLow})
	if math.Abs(got.MinExpectedMove-0.04) > 1e-9 {
		t.Fatalf("expected move 0.04, got %f", got.MinExpectedMove)
	}
	b := base
	b.MinExpectedMove = 0.045
	got = Derive(b, models.RegimeContext{VolatilityRegime: models.VolatilityLow})
	if math.Abs(got.MinExpectedMove-0.05) > 1e-9 {
		t.Fatalf("expected move must cap at 0.05, got %f", got.MinExpectedMove)
	}
}

func TestDeriveIdempotentFromBase(t *testing.T) {
	rc := models.RegimeContext{TrendRegime: models.TrendStrongBull, VolatilityRegime: models.VolatilityHigh}
	first := Derive(base, rc)
	second := Derive(base, rc)
	if first != second {
		t.Fatalf("derive must be idempotent for a stable regime: %+v vs %+v", first, second)
	}
	// A regime change starts from base again, the old deltas never linger.
	reverted := Derive(base, models.RegimeContext{TrendRegime: models.TrendBull, VolatilityRegime: models.VolatilityNormal})
	if reverted != base {
		t.Fatalf("neutral regime must return base, got %+v", reverted)
	}
}

type fakeRegimeSource struct {
	rc  models.RegimeContext
	err error
}

func (f fakeRegimeSource) CurrentRegime(context.Context) (models.RegimeContext, error) {
	return f.rc, f.err
}

func TestAdjusterFallsBackOnSourceFailure(t *testing.T) {
	a := NewAdjuster(fakeRegimeSource{err: errors.New("classifier down")}, nil, nil)
	got := a.Active(context.Background(), base)
	if got != base {
		t.Fatalf("unavailable source must fall back to base, got %+v", got)
	}
}

func TestAdjusterAppliesLiveRegime(t *testing.T) {
	a := NewAdjuster(fakeRegimeSource{rc: models.RegimeContext{
		TrendRegime: models.TrendStrongBull, VolatilityRegime: models.VolatilityNormal,
	}}, nil, nil)
	got := a.Active(context.Background(), base)
	if got.MinSignalsAgreeing != 2 {
		t.Fatalf("expected loosened thresholds, got %+v", got)
	}
}
