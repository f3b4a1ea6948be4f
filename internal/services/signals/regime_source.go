package signals

import (
	"context"
	"fmt"
	"time"

	"SigFuse/internal/domain/models"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/pkg/cache"
	"SigFuse/pkg/config"
)

// HTTPRegimeSource pulls the current trend/volatility classification from the
// external regime service. Responses are cached so every bucket in a cycle
// sees the same regime without hammering the classifier.
type HTTPRegimeSource struct {
	base       *HTTPServiceBase
	cache      cache.Service
	ttl        time.Duration
	instrument string
}

func NewHTTPRegimeSource(cfg *config.Config, cacheSvc cache.Service) *HTTPRegimeSource {
	ttl := cfg.Regime.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &HTTPRegimeSource{
		base:       NewHTTPServiceBase(cfg),
		cache:      cacheSvc,
		ttl:        ttl,
		instrument: cfg.MarketData.Instrument,
	}
}

type regimeRequest struct {
	Instrument string `json:"instrument"`
}

type regimeResponse struct {
	TrendRegime      string  `json:"trend_regime"`
	VolatilityRegime string  `json:"volatility_regime"`
	Confidence       float64 `json:"confidence"`
}

func (s *HTTPRegimeSource) CurrentRegime(ctx context.Context) (models.RegimeContext, error) {
	key := cache.GenerateKey("regime", s.instrument)
	if s.cache != nil {
		var rc models.RegimeContext
		if err := s.cache.Get(ctx, key, &rc); err == nil {
			return rc, nil
		}
	}

	var rr regimeResponse
	if err := s.base.PostJSONWithRetry(ctx, "/regime/current", regimeRequest{Instrument: s.instrument}, &rr, 3); err != nil {
		return models.RegimeContext{}, fmt.Errorf("post regime: %w", err)
	}
	rc := models.RegimeContext{
		TrendRegime:      rr.TrendRegime,
		VolatilityRegime: rr.VolatilityRegime,
		RegimeConfidence: rr.Confidence,
		Timestamp:        time.Now().UTC(),
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, rc, s.ttl)
	}
	return rc, nil
}

var _ domsvc.RegimeSource = (*HTTPRegimeSource)(nil)
