package usecase

import (
	"context"

	"SigFuse/internal/domain/models"
	drepo "SigFuse/internal/domain/repository"
	mid "SigFuse/internal/middleware"
)

// QuoteCollector reads the live quote stream and feeds the snapshot pipeline,
// reconnecting on stream errors.
type QuoteCollector struct {
	stream  drepo.QuoteStream
	metrics drepo.Metrics
	pipe    *mid.SnapshotPipeline
}

// NewQuoteCollector creates a new QuoteCollector instance.
func NewQuoteCollector(stream drepo.QuoteStream, metrics drepo.Metrics, pipe *mid.SnapshotPipeline) *QuoteCollector {
	return &QuoteCollector{stream: stream, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the quote stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, qCh <-chan *models.Quote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case q := <-qCh:
			if q == nil {
				continue
			}
			_ = c.pipe.Process(ctx, q)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
