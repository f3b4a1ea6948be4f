package marketdata

import (
	"math"
	"sync"
	"time"

	"SigFuse/internal/domain/models"
)

// SnapshotBuilder folds incoming quotes into a rolling MarketSnapshot: last
// price, trailing log returns, realized volatility. Safe for one writer and
// many readers.
type SnapshotBuilder struct {
	mu         sync.RWMutex
	instrument string
	window     int
	prices     []float64
	lastQuote  time.Time
}

func NewSnapshotBuilder(instrument string, window int) *SnapshotBuilder {
	if window < 2 {
		window = 60
	}
	return &SnapshotBuilder{instrument: instrument, window: window}
}

// Observe folds one quote into the rolling price series.
func (b *SnapshotBuilder) Observe(q *models.Quote) {
	if q == nil || q.Price <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices = append(b.prices, q.Price)
	if len(b.prices) > b.window+1 {
		b.prices = b.prices[len(b.prices)-b.window-1:]
	}
	b.lastQuote = time.Unix(q.Timestamp, 0)
}

// Ready reports whether enough prices accumulated for a meaningful snapshot.
func (b *SnapshotBuilder) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices) >= 2
}

// Snapshot returns the current market view. The returns slice is a fresh copy.
func (b *SnapshotBuilder) Snapshot() models.MarketSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := models.MarketSnapshot{
		Instrument: b.instrument,
		Timestamp:  b.lastQuote,
	}
	if len(b.prices) == 0 {
		return snap
	}
	snap.LastPrice = b.prices[len(b.prices)-1]
	snap.Returns = logReturns(b.prices)
	snap.RealizedVol = realizedVolatility(snap.Returns)
	return snap
}

// logReturns computes r_t = ln(P_t / P_{t-1}) over the price series.
func logReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// realizedVolatility is the sample standard deviation of the returns series,
// unannualized; consumers compare it against regime bands.
func realizedVolatility(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range returns {
		sum += r
		sum2 += r * r
	}
	mean := sum / float64(n)
	variance := (sum2 - float64(n)*mean*mean) / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
