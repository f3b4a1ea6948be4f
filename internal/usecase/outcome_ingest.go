package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	"SigFuse/internal/learning"
	"SigFuse/internal/strategy"
	applogger "SigFuse/pkg/logger"
	"SigFuse/pkg/queue"
)

// OutcomeIngestJob turns queued execution reports into stored outcome records
// and settled bucket trades. Runs on the redis queue workers.
type OutcomeIngestJob struct {
	learner     *learning.Learner
	coordinator *strategy.Coordinator
	metrics     domrepo.Metrics
	logger      *applogger.Logger
}

func NewOutcomeIngestJob(learner *learning.Learner, coordinator *strategy.Coordinator, metrics domrepo.Metrics, logger *applogger.Logger) *OutcomeIngestJob {
	return &OutcomeIngestJob{
		learner:     learner,
		coordinator: coordinator,
		metrics:     metrics,
		logger:      logger,
	}
}

func (j *OutcomeIngestJob) Name() string { return "outcome_ingest" }
func (j *OutcomeIngestJob) Type() string { return OutcomeMessageType }

func (j *OutcomeIngestJob) Handle(ctx context.Context, payload interface{}) error {
	report, err := queue.ParsePayload[models.ExecutionReport](payload)
	if err != nil {
		j.metrics.RecordError("outcome_payload")
		return fmt.Errorf("parse execution report: %w", err)
	}

	rec, err := outcomeFromReport(report)
	if err != nil {
		j.metrics.RecordError("outcome_translate")
		return err
	}
	if err := j.learner.AttachOutcome(ctx, rec); err != nil {
		return err
	}

	pnl, err := decimal.NewFromString(report.PnL)
	if err != nil {
		j.metrics.RecordError("outcome_pnl")
		return fmt.Errorf("parse pnl %q: %w", report.PnL, err)
	}
	trade := models.BucketTrade{
		StrategyID:   report.StrategyID,
		PredictionID: report.PredictionID,
		Confidence:   report.Confidence,
		ExpectedMove: report.ExpectedMove,
		PnL:          pnl,
		Signals:      report.Signals,
		ClosedAt:     report.ClosedAt,
	}
	if err := j.coordinator.RecordTrade(trade); err != nil {
		return fmt.Errorf("settle trade %s: %w", report.PredictionID, err)
	}

	if j.logger != nil {
		j.logger.Info("outcome ingested",
			applogger.String("prediction_id", report.PredictionID),
			applogger.String("strategy", report.StrategyID),
			applogger.String("pnl", report.PnL),
		)
	}
	return nil
}

// outcomeFromReport computes the realized move per horizon from the entry
// price and the horizon marks.
func outcomeFromReport(report *models.ExecutionReport) (*models.OutcomeRecord, error) {
	if report.EntryPrice <= 0 {
		return nil, fmt.Errorf("report %s: invalid entry price %f", report.PredictionID, report.EntryPrice)
	}
	moves := make(map[string]float64, len(report.Marks))
	for horizon, mark := range report.Marks {
		if !domrepo.IsValidHorizon(domrepo.Horizon(horizon)) {
			return nil, fmt.Errorf("report %s: unknown horizon %q", report.PredictionID, horizon)
		}
		moves[horizon] = (mark - report.EntryPrice) / report.EntryPrice
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("report %s: no horizon marks", report.PredictionID)
	}
	return &models.OutcomeRecord{
		PredictionID:  report.PredictionID,
		Instrument:    report.Instrument,
		RealizedMoves: moves,
		RecordedAt:    report.ClosedAt,
	}, nil
}
