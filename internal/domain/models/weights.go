package models

import (
	"fmt"
	"math"
	"time"
)

// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
const WeightSumTolerance = 1e-6

// SignalPerformance tracks one signal's realized accuracy bookkeeping.
type SignalPerformance struct {
	Score               float64 `json:"score"`
	TotalPredictions    int     `json:"total_predictions"`
	AccuratePredictions int     `json:"accurate_predictions"`
}

// SignalWeightVector is the current influence of each signal. Instances are
// immutable snapshots: the learner builds a new vector and swaps it in
// atomically between fusion cycles, readers keep their reference for the
// duration of a cycle.
type SignalWeightVector struct {
	Weights     map[string]float64           `json:"weights"`
	Performance map[string]SignalPerformance `json:"performance"`
	LastUpdated time.Time                    `json:"last_updated"`
}

// NewEqualWeights builds a baseline vector with equal weight per signal.
func NewEqualWeights(names []string) *SignalWeightVector {
	v := &SignalWeightVector{
		Weights:     make(map[string]float64, len(names)),
		Performance: make(map[string]SignalPerformance, len(names)),
		LastUpdated: time.Now(),
	}
	if len(names) == 0 {
		return v
	}
	w := 1.0 / float64(len(names))
	for _, n := range names {
		v.Weights[n] = w
	}
	return v
}

// NewWeightVector normalizes the given raw weights into a valid vector.
func NewWeightVector(raw map[string]float64) (*SignalWeightVector, error) {
	sum := 0.0
	for n, w := range raw {
		if w < 0 {
			return nil, fmt.Errorf("negative weight for %s: %f", n, w)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("weight sum must be positive, got %f", sum)
	}
	v := &SignalWeightVector{
		Weights:     make(map[string]float64, len(raw)),
		Performance: make(map[string]SignalPerformance, len(raw)),
		LastUpdated: time.Now(),
	}
	for n, w := range raw {
		v.Weights[n] = w / sum
	}
	return v, nil
}

// WeightOf returns the weight for a signal name, zero if unknown.
func (v *SignalWeightVector) WeightOf(name string) float64 {
	if v == nil {
		return 0
	}
	return v.Weights[name]
}

// Validate checks the invariant that weights are non-negative and sum to 1.
func (v *SignalWeightVector) Validate() error {
	sum := 0.0
	for n, w := range v.Weights {
		if w < 0 {
			return fmt.Errorf("negative weight for %s: %f", n, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %.9f, want 1.0 within %g", sum, WeightSumTolerance)
	}
	return nil
}

// Clone returns a deep copy, used as the mutable scratch for recomputation.
func (v *SignalWeightVector) Clone() *SignalWeightVector {
	c := &SignalWeightVector{
		Weights:     make(map[string]float64, len(v.Weights)),
		Performance: make(map[string]SignalPerformance, len(v.Performance)),
		LastUpdated: v.LastUpdated,
	}
	for n, w := range v.Weights {
		c.Weights[n] = w
	}
	for n, p := range v.Performance {
		c.Performance[n] = p
	}
	return c
}
