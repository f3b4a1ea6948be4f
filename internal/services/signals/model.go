package signals

import (
	"context"
	"fmt"

	"SigFuse/internal/domain/models"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/pkg/config"
)

type HTTPDirectionModel struct{ base *HTTPServiceBase }

func NewHTTPDirectionModel(cfg *config.Config) *HTTPDirectionModel {
	return &HTTPDirectionModel{base: NewHTTPServiceBase(cfg)}
}

type predictRequest struct {
	Instrument  string    `json:"instrument"`
	LastPrice   float64   `json:"last_price"`
	Returns     []float64 `json:"returns"`
	RealizedVol float64   `json:"realized_vol"`
}

type predictResponse struct {
	Direction    string  `json:"direction"`
	Confidence   float64 `json:"confidence"`
	ExpectedMove float64 `json:"expected_move"`
}

func (m *HTTPDirectionModel) Predict(ctx context.Context, snap models.MarketSnapshot) (models.ModelPrediction, error) {
	var pr predictResponse
	err := m.base.PostJSON(ctx, "/model/predict", predictRequest{
		Instrument:  snap.Instrument,
		LastPrice:   snap.LastPrice,
		Returns:     snap.Returns,
		RealizedVol: snap.RealizedVol,
	}, &pr)
	if err != nil {
		return models.ModelPrediction{}, fmt.Errorf("post predict: %w", err)
	}
	return models.ModelPrediction{
		Direction:    models.Direction(pr.Direction),
		Confidence:   pr.Confidence,
		ExpectedMove: pr.ExpectedMove,
	}, nil
}

var _ domsvc.DirectionModel = (*HTTPDirectionModel)(nil)
