package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	"SigFuse/internal/fusion"
	"SigFuse/internal/learning"
	"SigFuse/internal/regime"
	"SigFuse/internal/strategy"
	applogger "SigFuse/pkg/logger"
)

// CycleRunner drives one fusion cycle per accepted market snapshot: every
// bucket evaluates concurrently against the same weight and regime snapshot,
// records its decision, and publishes the trade-worthy ones.
type CycleRunner struct {
	engine      *fusion.Engine
	coordinator *strategy.Coordinator
	learner     *learning.Learner
	adjuster    *regime.Adjuster
	publisher   domrepo.DecisionPublisher
	metrics     domrepo.Metrics
	logger      *applogger.Logger
}

func NewCycleRunner(
	engine *fusion.Engine,
	coordinator *strategy.Coordinator,
	learner *learning.Learner,
	adjuster *regime.Adjuster,
	publisher domrepo.DecisionPublisher,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *CycleRunner {
	return &CycleRunner{
		engine:      engine,
		coordinator: coordinator,
		learner:     learner,
		adjuster:    adjuster,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
	}
}

// RunCycle evaluates all buckets against the snapshot. Weights and regime are
// read once so every bucket sees the same view; per-bucket failures are
// collected, they never abort the other buckets.
func (r *CycleRunner) RunCycle(ctx context.Context, snap models.MarketSnapshot) error {
	start := time.Now()
	weights := r.learner.Snapshot()
	rc, live := r.adjuster.Current(ctx)
	buckets := r.coordinator.Buckets()

	errCh := make(chan error, len(buckets))
	var wg sync.WaitGroup
	for _, b := range buckets {
		wg.Add(1)
		go func(b models.StrategyBucket) {
			defer wg.Done()
			if err := r.runBucket(ctx, b, snap, weights, rc, live); err != nil {
				errCh <- err
			}
		}(b)
	}
	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
		if r.logger != nil {
			r.logger.Error("bucket cycle failed", applogger.Error(err))
		}
	}
	if r.metrics != nil {
		r.metrics.RecordLatency("cycle_total", time.Since(start).Seconds())
	}
	return firstErr
}

func (r *CycleRunner) runBucket(
	ctx context.Context,
	b models.StrategyBucket,
	snap models.MarketSnapshot,
	weights *models.SignalWeightVector,
	rc models.RegimeContext,
	live bool,
) error {
	th := b.BaseThresholds
	if live {
		th = regime.Derive(b.BaseThresholds, rc)
	}

	d, err := r.engine.Evaluate(ctx, fusion.Input{
		StrategyID: b.StrategyID,
		Instrument: snap.Instrument,
		Snapshot:   snap,
		Weights:    weights,
		Thresholds: th,
		Boosts:     b.Boosts,
	})
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", b.StrategyID, err)
	}

	// The decision stands even if persistence fails; log and keep going.
	if _, err := r.learner.Record(ctx, d); err != nil && r.logger != nil {
		r.logger.Error("decision persist failed",
			applogger.String("strategy", b.StrategyID),
			applogger.Error(err),
		)
	}

	if !d.TradeWorthy {
		return nil
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, d); err != nil {
			if r.metrics != nil {
				r.metrics.RecordError("decision_publish")
			}
			return fmt.Errorf("publish %s: %w", d.PredictionID, err)
		}
	}
	r.coordinator.MarkPositionOpened(b.StrategyID)
	if r.logger != nil {
		r.logger.Info("trade-worthy decision published",
			applogger.String("strategy", b.StrategyID),
			applogger.String("prediction_id", d.PredictionID),
			applogger.String("action", string(d.Action)),
			applogger.String("rationale", d.Rationale),
		)
	}
	return nil
}
