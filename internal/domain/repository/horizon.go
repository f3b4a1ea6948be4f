package repository

import "time"

// Horizon labels the fixed lookahead windows at which realized moves are
// recorded against a decision.
type Horizon string

const (
	Horizon4h  Horizon = "4h"
	Horizon24h Horizon = "24h"
	Horizon72h Horizon = "72h"
)

// EvaluationHorizon is the horizon used to score signal accuracy.
const EvaluationHorizon = Horizon24h

// Horizons returns every tracked horizon in ascending order.
func Horizons() []Horizon {
	return []Horizon{Horizon4h, Horizon24h, Horizon72h}
}

// IsValidHorizon reports whether h is a tracked horizon.
func IsValidHorizon(h Horizon) bool {
	switch h {
	case Horizon4h, Horizon24h, Horizon72h:
		return true
	default:
		return false
	}
}

// Duration converts the horizon label to a time duration.
func (h Horizon) Duration() time.Duration {
	switch h {
	case Horizon4h:
		return 4 * time.Hour
	case Horizon24h:
		return 24 * time.Hour
	case Horizon72h:
		return 72 * time.Hour
	default:
		return 0
	}
}
