package usecase

import (
	"math"
	"testing"
	"time"

	"SigFuse/internal/domain/models"
)

func TestOutcomeFromReportComputesMoves(t *testing.T) {
	rec, err := outcomeFromReport(&models.ExecutionReport{
		PredictionID: "p-1",
		Instrument:   "AAPL",
		EntryPrice:   200,
		Marks:        map[string]float64{"4h": 202, "24h": 210, "72h": 190},
		ClosedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if math.Abs(rec.RealizedMoves["4h"]-0.01) > 1e-9 {
		t.Fatalf("4h move: got %f", rec.RealizedMoves["4h"])
	}
	if math.Abs(rec.RealizedMoves["24h"]-0.05) > 1e-9 {
		t.Fatalf("24h move: got %f", rec.RealizedMoves["24h"])
	}
	if math.Abs(rec.RealizedMoves["72h"]+0.05) > 1e-9 {
		t.Fatalf("72h move: got %f", rec.RealizedMoves["72h"])
	}
}

func TestOutcomeFromReportRejectsBadInput(t *testing.T) {
	if _, err := outcomeFromReport(&models.ExecutionReport{
		PredictionID: "p-1", EntryPrice: 0,
		Marks: map[string]float64{"24h": 100},
	}); err == nil {
		t.Fatalf("expected error for zero entry price")
	}
	if _, err := outcomeFromReport(&models.ExecutionReport{
		PredictionID: "p-1", EntryPrice: 100,
		Marks: map[string]float64{"36h": 101},
	}); err == nil {
		t.Fatalf("expected error for unknown horizon")
	}
	if _, err := outcomeFromReport(&models.ExecutionReport{
		PredictionID: "p-1", EntryPrice: 100,
	}); err == nil {
		t.Fatalf("expected error for empty marks")
	}
}
