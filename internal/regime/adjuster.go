package regime

import (
	"context"
	"time"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	domsvc "SigFuse/internal/domain/service"
	applogger "SigFuse/pkg/logger"
)

// Floors and ceilings for regime-driven threshold deltas.
const (
	minSignalsFloor   = 2
	confidenceFloor   = 0.70
	confidenceCeiling = 0.90
	moveFloor         = 0.02
	moveCeiling       = 0.05

	confidenceDelta = 0.10
	moveDelta       = 0.01
)

// Derive computes the active thresholds for a regime. Every call starts from
// base, so the result is idempotent for a stable regime and no override ever
// outlives a regime change. The base value is never mutated.
func Derive(base models.DecisionThresholds, rc models.RegimeContext) models.DecisionThresholds {
	out := base

	switch rc.TrendRegime {
	case models.TrendStrongBull, models.TrendStrongBear:
		out.MinSignalsAgreeing--
		if out.MinSignalsAgreeing < minSignalsFloor {
			out.MinSignalsAgreeing = minSignalsFloor
		}
		out.MinConfidence -= confidenceDelta
		if out.MinConfidence < confidenceFloor {
			out.MinConfidence = confidenceFloor
		}
	case models.TrendSideways, models.TrendChoppy:
		out.MinSignalsAgreeing++
		out.MinConfidence += confidenceDelta
		if out.MinConfidence > confidenceCeiling {
			out.MinConfidence = confidenceCeiling
		}
	}

	switch rc.VolatilityRegime {
	case models.VolatilityHigh:
		out.MinExpectedMove -= moveDelta
		if out.MinExpectedMove < moveFloor {
			out.MinExpectedMove = moveFloor
		}
	case models.VolatilityLow:
		out.MinExpectedMove += moveDelta
		if out.MinExpectedMove > moveCeiling {
			out.MinExpectedMove = moveCeiling
		}
	}

	return out
}

// Adjuster pulls the current regime from the external classifier and derives
// per-bucket thresholds. When the source is unavailable it falls back to the
// unmodified base.
type Adjuster struct {
	source  domsvc.RegimeSource
	logger  *applogger.Logger
	metrics domrepo.Metrics
}

func NewAdjuster(source domsvc.RegimeSource, metrics domrepo.Metrics, logger *applogger.Logger) *Adjuster {
	return &Adjuster{source: source, logger: logger, metrics: metrics}
}

// Current fetches the regime snapshot for this cycle. The bool reports
// whether a live regime was available.
func (a *Adjuster) Current(ctx context.Context) (models.RegimeContext, bool) {
	if a.source == nil {
		return models.RegimeContext{}, false
	}
	rc, err := a.source.CurrentRegime(ctx)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("regime_source")
		}
		if a.logger != nil {
			a.logger.Warn("regime source unavailable, using base thresholds", applogger.Error(err))
		}
		return models.RegimeContext{}, false
	}
	if rc.Timestamp.IsZero() {
		rc.Timestamp = time.Now().UTC()
	}
	return rc, true
}

// Active derives the thresholds for one cycle: base adjusted by the live
// regime, or base untouched when the source is down.
func (a *Adjuster) Active(ctx context.Context, base models.DecisionThresholds) models.DecisionThresholds {
	rc, ok := a.Current(ctx)
	if !ok {
		return base
	}
	return Derive(base, rc)
}
