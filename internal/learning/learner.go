package learning

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	applogger "SigFuse/pkg/logger"
)

// Config holds the learner tunables.
type Config struct {
	Window        time.Duration // trailing scoring window, e.g. 30 days
	MinSamples    int           // votes with outcomes required before a score replaces baseline
	DeadZone      float64       // realized moves inside ±DeadZone count as flat
	ScoreFloor    float64       // per-signal score clamp, lower bound
	ScoreCap      float64       // per-signal score clamp, upper bound
	ScoreBlend    float64       // fraction of score vs baseline in the candidate weight
	MaxRelChange  float64       // per-signal relative change cap per recompute
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 30 * 24 * time.Hour
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 5
	}
	if c.DeadZone <= 0 {
		c.DeadZone = 0.01
	}
	if c.ScoreFloor <= 0 {
		c.ScoreFloor = 0.05
	}
	if c.ScoreCap <= 0 {
		c.ScoreCap = 0.25
	}
	if c.ScoreBlend <= 0 || c.ScoreBlend >= 1 {
		c.ScoreBlend = 0.7
	}
	if c.MaxRelChange <= 0 {
		c.MaxRelChange = 0.2
	}
}

// Learner persists decisions and realized outcomes, scores each signal's
// trailing accuracy, and publishes new weight vectors. The current vector is
// swapped atomically: fusion cycles take a snapshot once and never observe a
// partial update.
type Learner struct {
	store    domrepo.DecisionStore
	logger   *applogger.Logger
	metrics  domrepo.Metrics
	cfg      Config
	baseline map[string]float64
	current  atomic.Pointer[models.SignalWeightVector]
}

// NewLearner builds a learner seeded with the baseline prior distribution.
func NewLearner(store domrepo.DecisionStore, baseline map[string]float64, metrics domrepo.Metrics, logger *applogger.Logger, cfg Config) (*Learner, error) {
	cfg.applyDefaults()
	initial, err := models.NewWeightVector(baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline weights: %w", err)
	}
	l := &Learner{
		store:    store,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		baseline: initial.Weights,
	}
	l.current.Store(initial)
	l.publishWeightMetrics(initial)
	return l, nil
}

// Snapshot returns the current weight vector. Callers hold the reference for
// a whole cycle; the vector itself is never mutated.
func (l *Learner) Snapshot() *models.SignalWeightVector {
	return l.current.Load()
}

// Record persists a decision and returns its prediction id. A persistence
// failure is surfaced but must not invalidate the decision already handed to
// execution; callers log and continue.
func (l *Learner) Record(ctx context.Context, d *models.CombinedDecision) (string, error) {
	if err := l.store.SaveDecision(ctx, d); err != nil {
		if l.metrics != nil {
			l.metrics.RecordError("decision_persist")
		}
		return d.PredictionID, fmt.Errorf("save decision %s: %w", d.PredictionID, err)
	}
	return d.PredictionID, nil
}

// AttachOutcome appends a realized outcome for a past decision.
func (l *Learner) AttachOutcome(ctx context.Context, rec *models.OutcomeRecord) error {
	if rec.PredictionID == "" {
		return fmt.Errorf("outcome missing prediction id")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	if err := l.store.AttachOutcome(ctx, rec); err != nil {
		if l.metrics != nil {
			l.metrics.RecordError("outcome_persist")
		}
		return fmt.Errorf("attach outcome %s: %w", rec.PredictionID, err)
	}
	return nil
}

// RecomputeWeights derives a new vector from trailing accuracy and swaps it
// in. Signals without enough samples keep their previous weight going into
// normalization; per-signal change is capped before normalization. A
// candidate that fails validation is discarded and the previous vector stays
// active.
func (l *Learner) RecomputeWeights(ctx context.Context) (*models.SignalWeightVector, error) {
	prev := l.current.Load()
	now := time.Now().UTC()
	from := now.Add(-l.cfg.Window)

	raw := make(map[string]float64, len(l.baseline))
	perf := make(map[string]models.SignalPerformance, len(l.baseline))

	for name, base := range l.baseline {
		prevWeight := prev.WeightOf(name)
		history, err := l.store.SignalHistory(ctx, name, from, now)
		if err != nil {
			// Treat a read failure like insufficient samples: keep the
			// previous weight rather than guessing.
			if l.logger != nil {
				l.logger.Warn("signal history unavailable",
					applogger.String("signal", name),
					applogger.Error(err),
				)
			}
			raw[name] = prevWeight
			perf[name] = prev.Performance[name]
			continue
		}

		sc := scoreSignal(history, l.cfg.DeadZone, l.cfg.ScoreFloor, l.cfg.ScoreCap)
		if sc.Samples < l.cfg.MinSamples {
			raw[name] = prevWeight
			perf[name] = models.SignalPerformance{
				Score:               prev.Performance[name].Score,
				TotalPredictions:    sc.Samples,
				AccuratePredictions: sc.Correct,
			}
			continue
		}

		candidate := l.cfg.ScoreBlend*sc.Score + (1-l.cfg.ScoreBlend)*base
		raw[name] = capRelativeChange(prevWeight, candidate, l.cfg.MaxRelChange)
		perf[name] = models.SignalPerformance{
			Score:               sc.Score,
			TotalPredictions:    sc.Samples,
			AccuratePredictions: sc.Correct,
		}
	}

	next, err := models.NewWeightVector(raw)
	if err != nil {
		if l.metrics != nil {
			l.metrics.RecordError("weight_recompute")
		}
		return prev, fmt.Errorf("weight recompute produced invalid vector, keeping previous: %w", err)
	}
	next.Performance = perf
	next.LastUpdated = now
	if err := next.Validate(); err != nil {
		if l.metrics != nil {
			l.metrics.RecordError("weight_recompute")
		}
		return prev, fmt.Errorf("weight vector corrupt, keeping previous: %w", err)
	}

	l.current.Store(next)
	l.publishWeightMetrics(next)
	if l.logger != nil {
		l.logger.Info("signal weights recomputed",
			applogger.Int("signals", len(next.Weights)),
			applogger.String("updated", next.LastUpdated.Format(time.RFC3339)),
		)
	}
	return next, nil
}

func (l *Learner) publishWeightMetrics(v *models.SignalWeightVector) {
	if l.metrics == nil {
		return
	}
	for name, w := range v.Weights {
		l.metrics.RecordSignalWeight(name, w)
	}
}

// capRelativeChange limits the move from prev toward candidate to ±maxRel
// relative, damping oscillation from short-lived accuracy swings. A zero
// previous weight passes the candidate through unchanged.
func capRelativeChange(prev, candidate, maxRel float64) float64 {
	if prev <= 0 {
		return candidate
	}
	upper := prev * (1 + maxRel)
	lower := prev * (1 - maxRel)
	if candidate > upper {
		return upper
	}
	if candidate < lower {
		return lower
	}
	return candidate
}
