package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"SigFuse/internal/domain/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newBucket(id string) *models.StrategyBucket {
	return &models.StrategyBucket{
		StrategyID: id,
		BaseThresholds: models.DecisionThresholds{
			MinSignalsAgreeing: 3,
			MinConfidence:      0.65,
			MinExpectedMove:    0.03,
		},
		InitialCapital: dec("10000"),
		CapitalBalance: dec("10000"),
	}
}

func newTestCoordinator(t *testing.T, ids ...string) *Coordinator {
	t.Helper()
	buckets := make([]*models.StrategyBucket, len(ids))
	for i, id := range ids {
		buckets[i] = newBucket(id)
	}
	c, err := NewCoordinator(buckets, nil, nil, nil, Config{
		CapitalFloor: dec("5000"),
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return c
}

func trade(id, pnl string, conf float64, signals ...string) models.BucketTrade {
	return models.BucketTrade{
		StrategyID:   id,
		PnL:          dec(pnl),
		Confidence:   conf,
		ExpectedMove: 0.04,
		Signals:      signals,
		ClosedAt:     time.Now().UTC(),
	}
}

func TestRankBucketsExcludesThinHistory(t *testing.T) {
	c := newTestCoordinator(t, "conservative", "aggressive")

	for i := 0; i < 3; i++ {
		if err := c.RecordTrade(trade("conservative", "100", 0.8)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	// Two trades only, under the minimum.
	for i := 0; i < 2; i++ {
		if err := c.RecordTrade(trade("aggressive", "500", 0.9)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ranks := c.RankBuckets()
	if len(ranks) != 1 {
		t.Fatalf("expected 1 ranked bucket, got %d", len(ranks))
	}
	if ranks[0].StrategyID != "conservative" {
		t.Fatalf("unexpected top bucket %s", ranks[0].StrategyID)
	}
	if !ranks[0].AvgPnL.Equal(dec("100")) {
		t.Fatalf("expected avg pnl 100, got %s", ranks[0].AvgPnL)
	}
}

func TestRankBucketsOrdersByAvgPnL(t *testing.T) {
	c := newTestCoordinator(t, "a", "b")

	for i := 0; i < 3; i++ {
		if err := c.RecordTrade(trade("a", "50", 0.7)); err != nil {
			t.Fatalf("record: %v", err)
		}
		if err := c.RecordTrade(trade("b", "200", 0.8)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ranks := c.RankBuckets()
	if len(ranks) != 2 {
		t.Fatalf("expected 2 ranked buckets, got %d", len(ranks))
	}
	if ranks[0].StrategyID != "b" || ranks[1].StrategyID != "a" {
		t.Fatalf("unexpected order %s, %s", ranks[0].StrategyID, ranks[1].StrategyID)
	}
}

func TestPropagateLearningInstallsVersionedBoosts(t *testing.T) {
	c := newTestCoordinator(t, "top", "other")

	// Winners average confidence 0.9: boost = 0.1 * 0.9 = 0.09.
	for i := 0; i < 3; i++ {
		if err := c.RecordTrade(trade("top", "300", 0.9, "momentum", "sentiment")); err != nil {
			t.Fatalf("record: %v", err)
		}
		if err := c.RecordTrade(trade("other", "-50", 0.6, "options_flow")); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	c.PropagateLearning()

	b := c.BoostsFor("other")
	if b.SourceStrategy != "top" || b.Version != 1 {
		t.Fatalf("unexpected boosts %+v", b)
	}
	if math.Abs(b.Boosts["momentum"]-0.09) > 1e-9 {
		t.Fatalf("expected boost 0.09, got %f", b.Boosts["momentum"])
	}
	if _, ok := b.Boosts["options_flow"]; ok {
		t.Fatalf("non-winner signal must not be boosted")
	}
	if top := c.BoostsFor("top"); len(top.Boosts) != 0 {
		t.Fatalf("top bucket must not boost itself")
	}

	// A second propagation replaces, never stacks.
	c.PropagateLearning()
	b = c.BoostsFor("other")
	if b.Version != 2 {
		t.Fatalf("expected version 2, got %d", b.Version)
	}
	if math.Abs(b.Boosts["momentum"]-0.09) > 1e-9 {
		t.Fatalf("boosts must not stack, got %f", b.Boosts["momentum"])
	}
}

func TestPropagateLearningNoWinnersNoPattern(t *testing.T) {
	c := newTestCoordinator(t, "a", "b")
	for i := 0; i < 3; i++ {
		if err := c.RecordTrade(trade("a", "-10", 0.7, "momentum")); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	c.PropagateLearning()
	if c.Pattern() != nil {
		t.Fatalf("losing history must not produce a pattern")
	}
}

func TestRecordTradeResetsOnlyWhenFlat(t *testing.T) {
	c := newTestCoordinator(t, "a")

	c.MarkPositionOpened("a")
	c.MarkPositionOpened("a")
	if err := c.RecordTrade(trade("a", "-6000", 0.7)); err != nil {
		t.Fatalf("record: %v", err)
	}

	buckets := c.Buckets()
	if !buckets[0].Degraded {
		t.Fatalf("bucket with open exposure must be degraded, not reset")
	}
	if !buckets[0].CapitalBalance.Equal(dec("4000")) {
		t.Fatalf("balance must be untouched, got %s", buckets[0].CapitalBalance)
	}

	// Last position closes: now flat and under the floor, so reset.
	if err := c.RecordTrade(trade("a", "-100", 0.7)); err != nil {
		t.Fatalf("record: %v", err)
	}
	buckets = c.Buckets()
	if buckets[0].Degraded {
		t.Fatalf("reset must clear the degraded flag")
	}
	if !buckets[0].CapitalBalance.Equal(dec("10000")) {
		t.Fatalf("expected reset to initial capital, got %s", buckets[0].CapitalBalance)
	}
}

func TestRecordTradeUnknownBucket(t *testing.T) {
	c := newTestCoordinator(t, "a")
	if err := c.RecordTrade(trade("missing", "10", 0.7)); err == nil {
		t.Fatalf("expected error for unknown bucket")
	}
}

func TestTrailingPerformanceUpdated(t *testing.T) {
	c := newTestCoordinator(t, "a")
	if err := c.RecordTrade(trade("a", "100", 0.8)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := c.RecordTrade(trade("a", "-40", 0.8)); err != nil {
		t.Fatalf("record: %v", err)
	}

	tp := c.Buckets()[0].Trailing
	if tp.TradeCount != 2 {
		t.Fatalf("expected 2 trades, got %d", tp.TradeCount)
	}
	if math.Abs(tp.WinRate-0.5) > 1e-9 {
		t.Fatalf("expected win rate 0.5, got %f", tp.WinRate)
	}
	if !tp.AvgPnL.Equal(dec("30")) {
		t.Fatalf("expected avg pnl 30, got %s", tp.AvgPnL)
	}
}
