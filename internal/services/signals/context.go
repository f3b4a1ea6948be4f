package signals

import (
	"context"
	"fmt"

	domsvc "SigFuse/internal/domain/service"
	"SigFuse/pkg/config"
)

// SectorAgreementContext scales confidence by how much of the instrument's
// sector is moving the same way.
type SectorAgreementContext struct{ base *HTTPServiceBase }

func NewSectorAgreementContext(cfg *config.Config) *SectorAgreementContext {
	return &SectorAgreementContext{base: NewHTTPServiceBase(cfg)}
}

func (c *SectorAgreementContext) Name() string { return "sector_agreement" }

type sectorRequest struct {
	Instrument string `json:"instrument"`
	Action     string `json:"action"`
}

type sectorResponse struct {
	Agreement float64 `json:"agreement"` // fraction of sector moving the same way
}

func (c *SectorAgreementContext) Adjust(ctx context.Context, state domsvc.DecisionState) (domsvc.ContextModifier, error) {
	var sr sectorResponse
	err := c.base.PostJSON(ctx, "/context/sector", sectorRequest{
		Instrument: state.Instrument,
		Action:     string(state.Action),
	}, &sr)
	if err != nil {
		return domsvc.ContextModifier{}, fmt.Errorf("post sector context: %w", err)
	}
	// Neutral at 50% agreement, full range 0.75..1.25 before engine clamping.
	factor := 0.75 + 0.5*sr.Agreement
	return domsvc.ContextModifier{
		Kind:   domsvc.ConfidenceMultiplier,
		Value:  factor,
		Reason: fmt.Sprintf("sector agreement %.0f%%", sr.Agreement*100),
	}, nil
}

var _ domsvc.ContextProvider = (*SectorAgreementContext)(nil)

// EarningsProximityContext discounts confidence ahead of a scheduled earnings
// report, when realized moves decouple from signal quality.
type EarningsProximityContext struct{ base *HTTPServiceBase }

func NewEarningsProximityContext(cfg *config.Config) *EarningsProximityContext {
	return &EarningsProximityContext{base: NewHTTPServiceBase(cfg)}
}

func (c *EarningsProximityContext) Name() string { return "earnings_proximity" }

type earningsRequest struct {
	Instrument string `json:"instrument"`
}

type earningsResponse struct {
	DaysToEarnings int `json:"days_to_earnings"` // negative when unknown
}

func (c *EarningsProximityContext) Adjust(ctx context.Context, state domsvc.DecisionState) (domsvc.ContextModifier, error) {
	var er earningsResponse
	err := c.base.PostJSON(ctx, "/context/earnings", earningsRequest{Instrument: state.Instrument}, &er)
	if err != nil {
		return domsvc.ContextModifier{}, fmt.Errorf("post earnings context: %w", err)
	}
	delta := 0.0
	switch {
	case er.DaysToEarnings < 0:
	case er.DaysToEarnings <= 1:
		delta = -0.15
	case er.DaysToEarnings <= 3:
		delta = -0.05
	}
	return domsvc.ContextModifier{
		Kind:   domsvc.ConfidenceDelta,
		Value:  delta,
		Reason: fmt.Sprintf("%d days to earnings", er.DaysToEarnings),
	}, nil
}

var _ domsvc.ContextProvider = (*EarningsProximityContext)(nil)
