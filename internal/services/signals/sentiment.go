package signals

import (
	"context"
	"fmt"

	"SigFuse/internal/domain/models"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/pkg/config"
)

type HTTPSentimentSignal struct{ base *HTTPServiceBase }

func NewHTTPSentimentSignal(cfg *config.Config) *HTTPSentimentSignal {
	return &HTTPSentimentSignal{base: NewHTTPServiceBase(cfg)}
}

func (s *HTTPSentimentSignal) Name() string { return "sentiment" }

type sentimentRequest struct {
	Instrument string `json:"instrument"`
}

type sentimentResponse struct {
	Direction    string  `json:"direction"`
	Strength     float64 `json:"strength"`
	Confidence   float64 `json:"confidence"`
	ExpectedMove float64 `json:"expected_move"`
	Rationale    string  `json:"rationale"`
}

func (s *HTTPSentimentSignal) Evaluate(ctx context.Context, instrument string, _ models.MarketSnapshot) (models.SignalObservation, error) {
	var sr sentimentResponse
	err := s.base.PostJSONWithRetry(ctx, "/signals/sentiment", sentimentRequest{Instrument: instrument}, &sr, 3)
	if err != nil {
		return models.SignalObservation{}, fmt.Errorf("post sentiment: %w", err)
	}
	return models.SignalObservation{
		Direction:    models.Direction(sr.Direction),
		Strength:     sr.Strength,
		Confidence:   sr.Confidence,
		ExpectedMove: sr.ExpectedMove,
		Rationale:    sr.Rationale,
	}, nil
}

var _ domsvc.SignalProvider = (*HTTPSentimentSignal)(nil)
