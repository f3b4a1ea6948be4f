package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	"SigFuse/internal/service/marketdata"
)

// CycleTrigger is the minimal downstream interface the pipeline needs: one
// fusion cycle per accepted snapshot.
type CycleTrigger interface {
	RunCycle(ctx context.Context, snap models.MarketSnapshot) error
}

// SnapshotPipeline is a middleware between the quote stream and the fusion
// cycle runner. It validates quotes, folds them into the rolling snapshot,
// rate-caps cycle triggering, and buffers snapshots when downstream is busy.
type SnapshotPipeline struct {
	trigger  CycleTrigger
	builder  *marketdata.SnapshotBuilder
	metrics  domrepo.Metrics
	interval time.Duration // min gap between triggered cycles
	bufSize  int
	bufCh    chan models.MarketSnapshot
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastRun  time.Time
}

type PipelineOption func(*SnapshotPipeline)

// WithCycleInterval sets the minimum gap between fusion cycles.
func WithCycleInterval(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithBufferSize sets the snapshot buffer size when downstream is busy.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewSnapshotPipeline creates a new pipeline.
func NewSnapshotPipeline(trigger CycleTrigger, builder *marketdata.SnapshotBuilder, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		trigger:  trigger,
		builder:  builder,
		metrics:  metrics,
		interval: 5 * time.Second, // default cycle cap
		bufSize:  16,              // cycles are heavy, keep the backlog short
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.MarketSnapshot, p.bufSize)
	return p
}

// Start launches background flushing of buffered snapshots.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case snap := <-p.bufCh:
				if err := p.trigger.RunCycle(ctx, snap); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and folds one quote, then triggers a cycle if the rate
// cap allows. Throttled quotes still update the snapshot; only the cycle is
// skipped.
func (p *SnapshotPipeline) Process(ctx context.Context, q *models.Quote) error {
	start := time.Now()
	if err := validateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	p.builder.Observe(q)
	p.metrics.RecordLastPrice(q.Instrument, q.Price)

	if !p.builder.Ready() {
		return nil
	}
	if !p.allow(start) {
		return nil
	}

	snap := p.builder.Snapshot()
	if err := p.trigger.RunCycle(ctx, snap); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- snap:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateQuote(q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote nil")
	}
	if q.Instrument == "" {
		return fmt.Errorf("instrument empty")
	}
	if q.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if q.Price <= 0 || q.Volume < 0 {
		return fmt.Errorf("invalid price/volume")
	}
	return nil
}

func (p *SnapshotPipeline) allow(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastRun.IsZero() && now.Sub(p.lastRun) < p.interval {
		return false
	}
	p.lastRun = now
	return true
}
