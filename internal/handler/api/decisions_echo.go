package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	"SigFuse/internal/learning"
	"SigFuse/internal/regime"
	"SigFuse/internal/strategy"
	xhttp "SigFuse/pkg/http"
	xlogger "SigFuse/pkg/logger"
	xutil "SigFuse/pkg/util"
)

// DecisionsEchoHandler exposes the read-only diagnostics API: decision
// history, current weights, bucket standings, and active thresholds.
type DecisionsEchoHandler struct {
	logger      *xlogger.Logger
	store       domrepo.DecisionStore
	learner     *learning.Learner
	coordinator *strategy.Coordinator
	adjuster    *regime.Adjuster
}

func NewDecisionsEchoHandler(
	logger *xlogger.Logger,
	store domrepo.DecisionStore,
	learner *learning.Learner,
	coordinator *strategy.Coordinator,
	adjuster *regime.Adjuster,
) *DecisionsEchoHandler {
	return &DecisionsEchoHandler{
		logger:      logger,
		store:       store,
		learner:     learner,
		coordinator: coordinator,
		adjuster:    adjuster,
	}
}

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/decisions/latest", h.LatestDecisions)
	g.GET("/decisions", h.DecisionsRange)
	g.GET("/signals/history", h.SignalHistory)
	g.GET("/weights", h.Weights)
	g.GET("/buckets", h.Buckets)
	g.POST("/buckets/select", h.SelectBucket)
	g.GET("/thresholds", h.Thresholds)
}

func (h *DecisionsEchoHandler) LatestDecisions(c echo.Context) error {
	req := &models.LatestDecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.store.LatestDecisions(c.Request().Context(), req.Instrument, req.Limit)
	if err != nil {
		h.logger.Error("latest decisions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) DecisionsRange(c echo.Context) error {
	req := &models.DecisionsRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now()
	from := xutil.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := xutil.ParseTimeDefault(req.To, now)

	res, err := h.store.DecisionsRange(c.Request().Context(), req.Instrument, from, to, req.Limit)
	if err != nil {
		h.logger.Error("decisions range query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *DecisionsEchoHandler) SignalHistory(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now()
	from := xutil.ParseTimeDefault(req.From, now.Add(-30*24*time.Hour))
	to := xutil.ParseTimeDefault(req.To, now)

	res, err := h.store.SignalHistory(c.Request().Context(), req.Signal, from, to)
	if err != nil {
		h.logger.Error("signal history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

// Weights reports the active weight vector. Diagnostics only; signals never
// read their own weight through this surface.
func (h *DecisionsEchoHandler) Weights(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.learner.Snapshot())
}

func (h *DecisionsEchoHandler) Buckets(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"buckets": h.coordinator.Buckets(),
		"ranking": h.coordinator.RankBuckets(),
		"pattern": h.coordinator.Pattern(),
	})
}

// SelectBucket runs a what-if evaluation of the supplied snapshot against
// every bucket and reports which one would act. Nothing is recorded or
// published.
func (h *DecisionsEchoHandler) SelectBucket(c echo.Context) error {
	req := &models.SelectBucketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	snap := models.MarketSnapshot{
		Instrument:  req.Instrument,
		Timestamp:   time.Now().UTC(),
		LastPrice:   req.LastPrice,
		Returns:     req.Returns,
		RealizedVol: req.RealizedVol,
	}
	id, dec, err := h.coordinator.SelectBucket(ctx, req.Instrument, snap, h.learner.Snapshot(),
		func(base models.DecisionThresholds) models.DecisionThresholds {
			return h.adjuster.Active(ctx, base)
		})
	if err != nil {
		h.logger.Error("bucket selection error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"strategy_id": id,
		"decision":    dec,
	})
}

// Thresholds reports each bucket's base and currently active thresholds.
func (h *DecisionsEchoHandler) Thresholds(c echo.Context) error {
	ctx := c.Request().Context()
	type row struct {
		StrategyID string                    `json:"strategy_id"`
		Base       models.DecisionThresholds `json:"base"`
		Active     models.DecisionThresholds `json:"active"`
	}
	buckets := h.coordinator.Buckets()
	out := make([]row, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, row{
			StrategyID: b.StrategyID,
			Base:       b.BaseThresholds,
			Active:     h.adjuster.Active(ctx, b.BaseThresholds),
		})
	}
	return xhttp.SuccessResponse(c, out)
}
