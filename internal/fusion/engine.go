package fusion

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/internal/service/ratelimit"
	applogger "SigFuse/pkg/logger"
)

// Bounds on context modifier application.
const (
	minConfidenceFactor = 0.5
	maxConfidenceFactor = 1.5
	maxConfidenceDelta  = 0.2
	minMoveFactor       = 0.5
	maxMoveFactor       = 1.5
)

// Config holds the fixed fusion tunables.
type Config struct {
	ProviderTimeout     time.Duration // per provider/model call
	MLWeight            float64       // model blend fraction, e.g. 0.2
	DisagreementPenalty float64       // confidence factor when model disagrees, e.g. 0.7
	BoostFloor          float64       // min observation confidence for cross-learned boosts
	ProviderRateLimit   float64       // max provider calls per second per signal, 0 = unlimited
}

// Input is one evaluation request.
type Input struct {
	StrategyID string
	Instrument string
	Snapshot   models.MarketSnapshot
	Weights    *models.SignalWeightVector // snapshot taken by the caller, read-only here
	Thresholds models.DecisionThresholds
	Boosts     models.WeightBoosts // zero value means no boosts
}

// Engine combines provider opinions and the model prediction into one
// confidence-scored decision. It holds no mutable state across cycles; all
// shared inputs arrive as read-only snapshots.
type Engine struct {
	providers []domsvc.SignalProvider
	model     domsvc.DirectionModel
	contexts  []domsvc.ContextProvider // applied in this order
	limiter   *ratelimit.Limiter
	logger    *applogger.Logger
	metrics   domrepo.Metrics
	cfg       Config
}

func NewEngine(
	providers []domsvc.SignalProvider,
	model domsvc.DirectionModel,
	contexts []domsvc.ContextProvider,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	cfg Config,
) *Engine {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 3 * time.Second
	}
	if cfg.MLWeight <= 0 || cfg.MLWeight >= 1 {
		cfg.MLWeight = 0.2
	}
	if cfg.DisagreementPenalty <= 0 || cfg.DisagreementPenalty >= 1 {
		cfg.DisagreementPenalty = 0.7
	}
	if cfg.BoostFloor <= 0 {
		cfg.BoostFloor = 0.5
	}
	return &Engine{
		providers: providers,
		model:     model,
		contexts:  contexts,
		limiter:   ratelimit.New(),
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Evaluate runs one fusion cycle: concurrent fan-out to every provider and
// the model, deterministic fan-in, model blend, context modifiers, threshold
// check. Total provider failure still yields a valid HOLD decision.
func (e *Engine) Evaluate(ctx context.Context, in Input) (*models.CombinedDecision, error) {
	if in.Instrument == "" {
		return nil, fmt.Errorf("instrument required")
	}
	start := time.Now()

	results, modelRes := e.fanOut(ctx, in)

	// Cross-learned boosts apply before voting, only to live observations
	// already above the floor confidence.
	for i := range results {
		r := &results[i]
		if r.Degraded {
			continue
		}
		boost, ok := in.Boosts.Boosts[r.Observation.SignalName]
		if !ok || boost <= 0 {
			continue
		}
		if r.Observation.Confidence < e.cfg.BoostFloor {
			continue
		}
		r.Observation.Confidence = clamp01(r.Observation.Confidence + boost)
	}

	d := e.fanIn(in, results)
	e.blendModel(d, modelRes)
	e.applyContexts(ctx, d)

	d.TradeWorthy = d.IsTradeWorthy(d.Thresholds)
	d.Rationale = buildRationale(d, modelRes)

	if e.metrics != nil {
		e.metrics.RecordCycle(in.StrategyID, string(d.Action), d.TradeWorthy)
		e.metrics.RecordConfidence(in.StrategyID, d.Confidence)
		e.metrics.RecordLatency("fusion_evaluate", time.Since(start).Seconds())
	}
	return d, nil
}

// fanOut invokes every provider plus the model concurrently, each under its
// own timeout. Failures degrade, they never abort the cycle.
func (e *Engine) fanOut(ctx context.Context, in Input) ([]ProviderResult, ProviderResult) {
	type indexed struct {
		i   int
		res ProviderResult
	}
	ch := make(chan indexed, len(e.providers))
	var wg sync.WaitGroup

	for i, p := range e.providers {
		wg.Add(1)
		go func(i int, p domsvc.SignalProvider) {
			defer wg.Done()
			ch <- indexed{i, e.callProvider(ctx, p, in)}
		}(i, p)
	}

	modelCh := make(chan ProviderResult, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		modelCh <- e.callModel(ctx, in)
	}()

	go func() { wg.Wait(); close(ch); close(modelCh) }()

	// Results keep provider registration order so the combination is
	// deterministic regardless of arrival order.
	results := make([]ProviderResult, len(e.providers))
	for it := range ch {
		results[it.i] = it.res
	}
	return results, <-modelCh
}

func (e *Engine) callProvider(ctx context.Context, p domsvc.SignalProvider, in Input) ProviderResult {
	name := p.Name()
	if e.cfg.ProviderRateLimit > 0 && !e.limiter.Allow(name, e.cfg.ProviderRateLimit, e.cfg.ProviderRateLimit) {
		e.recordFailure(name, "rate_limited")
		return Degraded(name, "rate limited")
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	obs, err := p.Evaluate(cctx, in.Instrument, in.Snapshot)
	if err != nil {
		e.recordFailure(name, "error")
		if e.logger != nil {
			e.logger.Warn("signal provider degraded",
				applogger.String("signal", name),
				applogger.Error(err),
			)
		}
		return Degraded(name, err.Error())
	}
	if !obs.Direction.IsValid() || obs.Confidence < 0 || obs.Confidence > 1 {
		e.recordFailure(name, "malformed")
		return Degraded(name, "malformed observation")
	}
	obs.SignalName = name
	obs.WeightAtEvaluation = in.Weights.WeightOf(name)
	return Ok(obs)
}

func (e *Engine) callModel(ctx context.Context, in Input) ProviderResult {
	const name = "direction_model"
	if e.model == nil {
		return Degraded(name, "not configured")
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	pred, err := e.model.Predict(cctx, in.Snapshot)
	if err != nil {
		e.recordFailure(name, "error")
		if e.logger != nil {
			e.logger.Warn("direction model degraded", applogger.Error(err))
		}
		return Degraded(name, err.Error())
	}
	if !pred.Direction.IsValid() {
		e.recordFailure(name, "malformed")
		return Degraded(name, "malformed prediction")
	}
	return Ok(models.SignalObservation{
		SignalName:   name,
		Direction:    pred.Direction,
		Confidence:   clamp01(pred.Confidence),
		ExpectedMove: pred.ExpectedMove,
	})
}

// fanIn runs the weighted vote over live observations. The bucket with the
// largest aggregate wins; HOLD wins every tie so a split never trades.
func (e *Engine) fanIn(in Input, results []ProviderResult) *models.CombinedDecision {
	var (
		agg   = map[models.Direction]float64{}
		wsum  = map[models.Direction]float64{}
		votes = map[models.Direction]int{}
	)
	observations := make([]models.SignalObservation, 0, len(results))
	for _, r := range results {
		obs := r.Observation
		observations = append(observations, obs)
		if r.Degraded {
			continue
		}
		agg[obs.Direction] += obs.WeightAtEvaluation * obs.Confidence
		wsum[obs.Direction] += obs.WeightAtEvaluation
		votes[obs.Direction]++
	}

	action := models.DirectionHold
	if agg[models.DirectionBuy] > agg[models.DirectionSell] && agg[models.DirectionBuy] > agg[models.DirectionHold] {
		action = models.DirectionBuy
	} else if agg[models.DirectionSell] > agg[models.DirectionBuy] && agg[models.DirectionSell] > agg[models.DirectionHold] {
		action = models.DirectionSell
	}

	confidence := 0.0
	if wsum[action] > 0 {
		confidence = clamp01(agg[action] / wsum[action])
	}

	move := 0.0
	if action != models.DirectionHold && votes[action] > 0 {
		sum := 0.0
		for _, r := range results {
			if r.Degraded || r.Observation.Direction != action {
				continue
			}
			sum += math.Abs(r.Observation.ExpectedMove)
		}
		move = sum / float64(votes[action])
		if action == models.DirectionSell {
			move = -move
		}
	}

	return &models.CombinedDecision{
		PredictionID:      uuid.NewString(),
		StrategyID:        in.StrategyID,
		Instrument:        in.Instrument,
		Timestamp:         time.Now().UTC(),
		Action:            action,
		Confidence:        confidence,
		ExpectedMove:      move,
		SignalsAgreeing:   votes[action],
		TotalSignals:      len(results),
		IndividualSignals: observations,
		Thresholds:        in.Thresholds,
	}
}

// blendModel folds the model prediction into the signal vote: agreement pulls
// confidence and move toward the model, disagreement discounts confidence and
// leaves the move from signals alone.
func (e *Engine) blendModel(d *models.CombinedDecision, modelRes ProviderResult) {
	if modelRes.Degraded || d.Action == models.DirectionHold {
		return
	}
	ml := e.cfg.MLWeight
	obs := modelRes.Observation
	if obs.Direction == d.Action {
		d.Confidence = clamp01(d.Confidence*(1-ml) + obs.Confidence*ml)
		blended := math.Abs(d.ExpectedMove)*(1-ml) + math.Abs(obs.ExpectedMove)*ml
		if d.Action == models.DirectionSell {
			blended = -blended
		}
		d.ExpectedMove = blended
		return
	}
	d.Confidence = clamp01(d.Confidence * e.cfg.DisagreementPenalty)
}

// applyContexts walks the context providers in their fixed registration
// order, clamping confidence into [0,1] after every step.
func (e *Engine) applyContexts(ctx context.Context, d *models.CombinedDecision) {
	for _, cp := range e.contexts {
		state := domsvc.DecisionState{
			Instrument:   d.Instrument,
			Action:       d.Action,
			Confidence:   d.Confidence,
			ExpectedMove: d.ExpectedMove,
		}
		mod, err := cp.Adjust(ctx, state)
		if err != nil {
			e.recordFailure(cp.Name(), "context_error")
			if e.logger != nil {
				e.logger.Warn("context provider skipped",
					applogger.String("context", cp.Name()),
					applogger.Error(err),
				)
			}
			continue
		}
		switch mod.Kind {
		case domsvc.ConfidenceMultiplier:
			f := clampRange(mod.Value, minConfidenceFactor, maxConfidenceFactor)
			d.Confidence = clamp01(d.Confidence * f)
		case domsvc.ConfidenceDelta:
			delta := clampRange(mod.Value, -maxConfidenceDelta, maxConfidenceDelta)
			d.Confidence = clamp01(d.Confidence + delta)
		case domsvc.ExpectedMoveMultiplier:
			f := clampRange(mod.Value, minMoveFactor, maxMoveFactor)
			d.ExpectedMove *= f
		default:
			continue
		}
		d.ContextAdjustments = append(d.ContextAdjustments,
			fmt.Sprintf("%s: %s %.3f (%s)", cp.Name(), mod.Kind, mod.Value, mod.Reason))
	}
}

func (e *Engine) recordFailure(name, reason string) {
	if e.metrics != nil {
		e.metrics.RecordProviderFailure(name, reason)
	}
}

func buildRationale(d *models.CombinedDecision, modelRes ProviderResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d/%d signals, confidence %.2f, expected move %+.2f%%",
		d.Action, d.SignalsAgreeing, d.TotalSignals, d.Confidence, d.ExpectedMove*100)
	if !modelRes.Degraded && d.Action != models.DirectionHold {
		if modelRes.Observation.Direction == d.Action {
			fmt.Fprintf(&b, "; model agrees (%.2f)", modelRes.Observation.Confidence)
		} else {
			fmt.Fprintf(&b, "; model disagrees (%s %.2f)", modelRes.Observation.Direction, modelRes.Observation.Confidence)
		}
	}
	if len(d.ContextAdjustments) > 0 {
		fmt.Fprintf(&b, "; contexts: %s", strings.Join(d.ContextAdjustments, ", "))
	}
	return b.String()
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
