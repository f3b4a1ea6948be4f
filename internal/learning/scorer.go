package learning

import (
	"math"

	"SigFuse/internal/domain/models"
)

// Scoring mix: direction accuracy dominates, magnitude and confidence refine.
const (
	directionWeight  = 0.5
	magnitudeWeight  = 0.3
	confidenceWeight = 0.2
	magnitudeRatio   = 0.5 // realized must reach half the predicted move
)

// signalScore is the aggregate accuracy summary for one signal over a window.
type signalScore struct {
	Score   float64
	Samples int
	Correct int
}

// scoreSignal computes the clamped accuracy score for one signal from its
// vote history. Only rows with a recorded outcome participate. deadZone is
// the band of realized moves treated as flat.
func scoreSignal(history []models.SignalOutcome, deadZone, floor, cap float64) signalScore {
	var (
		samples     int
		dirCorrect  int
		magCorrect  int
		confSum     float64
	)
	for _, h := range history {
		if !h.HasOutcome {
			continue
		}
		samples++
		confSum += h.Confidence
		if directionMatched(h.Direction, h.RealizedMove, deadZone) {
			dirCorrect++
		}
		if math.Abs(h.RealizedMove) >= magnitudeRatio*math.Abs(h.PredictedMove) {
			magCorrect++
		}
	}
	if samples == 0 {
		return signalScore{}
	}

	n := float64(samples)
	score := directionWeight*(float64(dirCorrect)/n) +
		magnitudeWeight*(float64(magCorrect)/n) +
		confidenceWeight*(confSum/n)
	if score < floor {
		score = floor
	}
	if score > cap {
		score = cap
	}
	return signalScore{Score: score, Samples: samples, Correct: dirCorrect}
}

// directionMatched checks a vote against the realized move. Moves inside the
// dead zone count as flat: only a HOLD vote is correct there.
func directionMatched(vote models.Direction, realized, deadZone float64) bool {
	if math.Abs(realized) < deadZone {
		return vote == models.DirectionHold
	}
	switch vote {
	case models.DirectionBuy:
		return realized > 0
	case models.DirectionSell:
		return realized < 0
	default:
		return false
	}
}
