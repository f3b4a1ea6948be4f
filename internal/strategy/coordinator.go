package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	"SigFuse/internal/fusion"
	applogger "SigFuse/pkg/logger"
)

// Config holds the coordinator tunables.
type Config struct {
	TrailWindow  time.Duration   // trade window for ranking, e.g. 7 days
	MinTrades    int             // trades required before a bucket enters ranking
	BoostFactor  float64         // boost = BoostFactor * avg confidence of the top bucket's winners
	CapitalFloor decimal.Decimal // balance below this triggers the reset check
}

func (c *Config) applyDefaults() {
	if c.TrailWindow <= 0 {
		c.TrailWindow = 7 * 24 * time.Hour
	}
	if c.MinTrades <= 0 {
		c.MinTrades = 3
	}
	if c.BoostFactor <= 0 {
		c.BoostFactor = 0.1
	}
}

// Coordinator manages the pool of strategy buckets: ranking by realized
// performance, propagating confidence boosts from the top performer, and
// selecting the bucket with the strongest conviction for a fresh snapshot.
type Coordinator struct {
	mu      sync.RWMutex
	buckets map[string]*models.StrategyBucket
	order   []string // bucket iteration order, fixed at construction
	trades  map[string][]models.BucketTrade
	pattern *models.TeachablePattern
	version int64

	engine  *fusion.Engine
	logger  *applogger.Logger
	metrics domrepo.Metrics
	cfg     Config
}

func NewCoordinator(buckets []*models.StrategyBucket, engine *fusion.Engine, metrics domrepo.Metrics, logger *applogger.Logger, cfg Config) (*Coordinator, error) {
	cfg.applyDefaults()
	if len(buckets) == 0 {
		return nil, fmt.Errorf("at least one strategy bucket required")
	}
	c := &Coordinator{
		buckets: make(map[string]*models.StrategyBucket, len(buckets)),
		trades:  make(map[string][]models.BucketTrade, len(buckets)),
		engine:  engine,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
	for _, b := range buckets {
		if b.StrategyID == "" {
			return nil, fmt.Errorf("bucket without strategy id")
		}
		if _, dup := c.buckets[b.StrategyID]; dup {
			return nil, fmt.Errorf("duplicate bucket %s", b.StrategyID)
		}
		c.buckets[b.StrategyID] = b
		c.order = append(c.order, b.StrategyID)
	}
	return c, nil
}

// Buckets returns a copy of the pool for iteration and reporting.
func (c *Coordinator) Buckets() []models.StrategyBucket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.StrategyBucket, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.buckets[id])
	}
	return out
}

// BoostsFor returns the current cross-learned boosts for a bucket.
func (c *Coordinator) BoostsFor(strategyID string) models.WeightBoosts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.buckets[strategyID]; ok {
		return b.Boosts
	}
	return models.WeightBoosts{}
}

// RankBuckets orders buckets by trailing average realized P&L per trade.
// Buckets under the minimum trade count are excluded rather than ranked on
// noise.
func (c *Coordinator) RankBuckets() []models.BucketRank {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rankLocked()
}

func (c *Coordinator) rankLocked() []models.BucketRank {
	cutoff := time.Now().Add(-c.cfg.TrailWindow)
	ranks := make([]models.BucketRank, 0, len(c.order))
	for _, id := range c.order {
		var (
			sum  = decimal.Zero
			wins int
			n    int
		)
		for _, t := range c.trades[id] {
			if t.ClosedAt.Before(cutoff) {
				continue
			}
			sum = sum.Add(t.PnL)
			if t.PnL.IsPositive() {
				wins++
			}
			n++
		}
		if n < c.cfg.MinTrades {
			continue
		}
		ranks = append(ranks, models.BucketRank{
			StrategyID: id,
			AvgPnL:     sum.Div(decimal.NewFromInt(int64(n))),
			WinRate:    float64(wins) / float64(n),
			TradeCount: n,
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].AvgPnL.GreaterThan(ranks[j].AvgPnL)
	})
	return ranks
}

// PropagateLearning extracts the top bucket's teachable pattern and installs
// bounded confidence boosts on every other bucket. Boosts are versioned and
// replaced wholesale, so a dethroned leader's boosts never linger.
func (c *Coordinator) PropagateLearning() {
	c.mu.Lock()
	defer c.mu.Unlock()

	ranks := c.rankLocked()
	if len(ranks) == 0 {
		return
	}
	top := ranks[0].StrategyID

	cutoff := time.Now().Add(-c.cfg.TrailWindow)
	var (
		confSum float64
		moveSum float64
		winners int
		signals = map[string]struct{}{}
	)
	for _, t := range c.trades[top] {
		if t.ClosedAt.Before(cutoff) || !t.PnL.IsPositive() {
			continue
		}
		winners++
		confSum += t.Confidence
		moveSum += t.ExpectedMove
		for _, s := range t.Signals {
			signals[s] = struct{}{}
		}
	}
	if winners == 0 {
		return
	}

	c.version++
	c.pattern = &models.TeachablePattern{
		StrategyID:          top,
		AvgWinnerConfidence: confSum / float64(winners),
		AvgWinnerMove:       moveSum / float64(winners),
		Version:             c.version,
	}

	boost := c.cfg.BoostFactor * c.pattern.AvgWinnerConfidence
	boosts := make(map[string]float64, len(signals))
	for s := range signals {
		boosts[s] = boost
	}

	for _, id := range c.order {
		if id == top {
			continue
		}
		c.buckets[id].Boosts = models.WeightBoosts{
			Version:        c.version,
			SourceStrategy: top,
			Boosts:         boosts,
		}
	}

	if c.logger != nil {
		c.logger.Info("cross-strategy boosts propagated",
			applogger.String("leader", top),
			applogger.Int("signals", len(boosts)),
			applogger.Int64("version", c.version),
		)
	}
}

// Pattern returns the current teachable pattern, nil before the first
// propagation.
func (c *Coordinator) Pattern() *models.TeachablePattern {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pattern == nil {
		return nil
	}
	p := *c.pattern
	return &p
}

// SelectBucket evaluates every bucket against the snapshot and returns the
// id and decision of the bucket whose fused confidence clears its own
// threshold by the largest margin. Empty id means no bucket qualifies.
func (c *Coordinator) SelectBucket(
	ctx context.Context,
	instrument string,
	snap models.MarketSnapshot,
	weights *models.SignalWeightVector,
	thresholdsFor func(base models.DecisionThresholds) models.DecisionThresholds,
) (string, *models.CombinedDecision, error) {
	var (
		bestID     string
		bestMargin float64
		bestDec    *models.CombinedDecision
	)
	for _, b := range c.Buckets() {
		th := b.BaseThresholds
		if thresholdsFor != nil {
			th = thresholdsFor(b.BaseThresholds)
		}
		d, err := c.engine.Evaluate(ctx, fusion.Input{
			StrategyID: b.StrategyID,
			Instrument: instrument,
			Snapshot:   snap,
			Weights:    weights,
			Thresholds: th,
			Boosts:     b.Boosts,
		})
		if err != nil {
			return "", nil, fmt.Errorf("evaluate bucket %s: %w", b.StrategyID, err)
		}
		if !d.TradeWorthy {
			continue
		}
		margin := d.Confidence - th.MinConfidence
		if bestID == "" || margin > bestMargin {
			bestID, bestMargin, bestDec = b.StrategyID, margin, d
		}
	}
	return bestID, bestDec, nil
}

// RecordTrade settles one trade against its bucket: trailing performance,
// capital balance, and the reset-or-degrade check. A bucket is reset to its
// initial capital only when the balance is under the floor AND no positions
// are open; with exposure outstanding it is flagged degraded and left alone.
func (c *Coordinator) RecordTrade(trade models.BucketTrade) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[trade.StrategyID]
	if !ok {
		return fmt.Errorf("unknown bucket %s", trade.StrategyID)
	}
	if trade.ClosedAt.IsZero() {
		trade.ClosedAt = time.Now().UTC()
	}

	c.trades[trade.StrategyID] = append(c.trades[trade.StrategyID], trade)
	c.pruneLocked(trade.StrategyID)

	b.CapitalBalance = b.CapitalBalance.Add(trade.PnL)
	if b.OpenPositions > 0 {
		b.OpenPositions--
	}
	b.Trailing = c.trailingLocked(trade.StrategyID)

	if !c.cfg.CapitalFloor.IsZero() && b.CapitalBalance.LessThan(c.cfg.CapitalFloor) {
		if b.OpenPositions == 0 {
			b.CapitalBalance = b.InitialCapital
			b.Degraded = false
			if c.logger != nil {
				c.logger.Warn("bucket capital reset",
					applogger.String("strategy", trade.StrategyID),
					applogger.String("capital", b.InitialCapital.String()),
				)
			}
		} else {
			b.Degraded = true
		}
	}
	return nil
}

// MarkPositionOpened bumps the open-position count when a trade-worthy
// decision is handed to execution.
func (c *Coordinator) MarkPositionOpened(strategyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.buckets[strategyID]; ok {
		b.OpenPositions++
	}
}

func (c *Coordinator) pruneLocked(id string) {
	cutoff := time.Now().Add(-c.cfg.TrailWindow)
	trades := c.trades[id]
	kept := trades[:0]
	for _, t := range trades {
		if !t.ClosedAt.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	c.trades[id] = kept
}

func (c *Coordinator) trailingLocked(id string) models.TrailingPerformance {
	trades := c.trades[id]
	if len(trades) == 0 {
		return models.TrailingPerformance{}
	}
	sum := decimal.Zero
	wins := 0
	for _, t := range trades {
		sum = sum.Add(t.PnL)
		if t.PnL.IsPositive() {
			wins++
		}
	}
	n := len(trades)
	return models.TrailingPerformance{
		WinRate:    float64(wins) / float64(n),
		AvgPnL:     sum.Div(decimal.NewFromInt(int64(n))),
		TradeCount: n,
	}
}
