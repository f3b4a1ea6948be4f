package signals

import (
	"context"
	"fmt"

	"SigFuse/internal/domain/models"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/pkg/config"
)

type HTTPTechnicalSignal struct{ base *HTTPServiceBase }

func NewHTTPTechnicalSignal(cfg *config.Config) *HTTPTechnicalSignal {
	return &HTTPTechnicalSignal{base: NewHTTPServiceBase(cfg)}
}

func (s *HTTPTechnicalSignal) Name() string { return "technical" }

type technicalRequest struct {
	Instrument string    `json:"instrument"`
	LastPrice  float64   `json:"last_price"`
	Returns    []float64 `json:"returns"`
}

type technicalResponse struct {
	Direction    string  `json:"direction"`
	Strength     float64 `json:"strength"`
	Confidence   float64 `json:"confidence"`
	ExpectedMove float64 `json:"expected_move"`
	Rationale    string  `json:"rationale"`
}

func (s *HTTPTechnicalSignal) Evaluate(ctx context.Context, instrument string, snap models.MarketSnapshot) (models.SignalObservation, error) {
	var tr technicalResponse
	err := s.base.PostJSONWithRetry(ctx, "/signals/technical", technicalRequest{
		Instrument: instrument,
		LastPrice:  snap.LastPrice,
		Returns:    snap.Returns,
	}, &tr, 3)
	if err != nil {
		return models.SignalObservation{}, fmt.Errorf("post technical: %w", err)
	}
	return models.SignalObservation{
		Direction:    models.Direction(tr.Direction),
		Strength:     tr.Strength,
		Confidence:   tr.Confidence,
		ExpectedMove: tr.ExpectedMove,
		Rationale:    tr.Rationale,
	}, nil
}

var _ domsvc.SignalProvider = (*HTTPTechnicalSignal)(nil)
