package fusion

import "SigFuse/internal/domain/models"

// ProviderResult is the tagged outcome of one provider call during fan-out.
// Degraded results carry a synthetic HOLD observation with zero weight, so
// fan-in treats every result uniformly without error handling in the hot
// path.
type ProviderResult struct {
	Observation models.SignalObservation
	Degraded    bool
	Reason      string
}

// Ok wraps a successful observation.
func Ok(obs models.SignalObservation) ProviderResult {
	return ProviderResult{Observation: obs}
}

// Degraded wraps a provider failure as a zero-confidence HOLD observation.
func Degraded(signalName, reason string) ProviderResult {
	return ProviderResult{
		Observation: models.DegradedObservation(signalName, reason),
		Degraded:    true,
		Reason:      reason,
	}
}
