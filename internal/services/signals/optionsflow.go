package signals

import (
	"context"
	"fmt"

	"SigFuse/internal/domain/models"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/pkg/config"
)

type HTTPOptionsFlowSignal struct{ base *HTTPServiceBase }

func NewHTTPOptionsFlowSignal(cfg *config.Config) *HTTPOptionsFlowSignal {
	return &HTTPOptionsFlowSignal{base: NewHTTPServiceBase(cfg)}
}

func (s *HTTPOptionsFlowSignal) Name() string { return "options_flow" }

type optionsFlowRequest struct {
	Instrument string  `json:"instrument"`
	LastPrice  float64 `json:"last_price"`
}

type optionsFlowResponse struct {
	Direction    string  `json:"direction"`
	Strength     float64 `json:"strength"`
	Confidence   float64 `json:"confidence"`
	ExpectedMove float64 `json:"expected_move"`
	Rationale    string  `json:"rationale"`
}

func (s *HTTPOptionsFlowSignal) Evaluate(ctx context.Context, instrument string, snap models.MarketSnapshot) (models.SignalObservation, error) {
	var or optionsFlowResponse
	err := s.base.PostJSONWithRetry(ctx, "/signals/options-flow", optionsFlowRequest{
		Instrument: instrument,
		LastPrice:  snap.LastPrice,
	}, &or, 3)
	if err != nil {
		return models.SignalObservation{}, fmt.Errorf("post options flow: %w", err)
	}
	return models.SignalObservation{
		Direction:    models.Direction(or.Direction),
		Strength:     or.Strength,
		Confidence:   or.Confidence,
		ExpectedMove: or.ExpectedMove,
		Rationale:    or.Rationale,
	}, nil
}

var _ domsvc.SignalProvider = (*HTTPOptionsFlowSignal)(nil)
