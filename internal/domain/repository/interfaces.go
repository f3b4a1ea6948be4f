package repository

import (
	"context"
	"time"

	"SigFuse/internal/domain/models"
)

// QuoteStream is a live market data feed for the configured instrument.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// DecisionStore is the append-only persistence boundary for decisions and
// their realized outcomes. Records are independently keyed by prediction id
// and may be written concurrently by multiple strategy buckets.
type DecisionStore interface {
	Init(ctx context.Context) error
	SaveDecision(ctx context.Context, d *models.CombinedDecision) error
	AttachOutcome(ctx context.Context, rec *models.OutcomeRecord) error
	GetDecision(ctx context.Context, predictionID string) (*models.CombinedDecision, error)
	LatestDecisions(ctx context.Context, instrument string, limit int) ([]models.CombinedDecision, error)
	DecisionsRange(ctx context.Context, instrument string, from, to time.Time, limit int) ([]models.CombinedDecision, error)
	// SignalHistory returns one row per vote the named signal cast inside the
	// window, joined with the realized move at the evaluation horizon.
	SignalHistory(ctx context.Context, signalName string, from, to time.Time) ([]models.SignalOutcome, error)
	Health(ctx context.Context) error
	Close() error
}

// DecisionPublisher forwards decisions to the external execution collaborator.
type DecisionPublisher interface {
	Publish(ctx context.Context, d *models.CombinedDecision) error
	Close() error
}

// Metrics records operational telemetry for the fusion pipeline.
type Metrics interface {
	RecordCycle(strategyID string, action string, tradeWorthy bool)
	RecordProviderFailure(signal, reason string)
	RecordSignalWeight(signal string, weight float64)
	RecordConfidence(strategyID string, confidence float64)
	RecordLastPrice(instrument string, price float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
