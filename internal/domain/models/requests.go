package models

// HTTP request models for the diagnostics API. Bound from query params and
// validated by pkg/http.

type LatestDecisionsRequest struct {
	Instrument string `query:"instrument" validate:"required"`
	Limit      int    `query:"limit" default:"20" validate:"gte=1,lte=500"`
}

type DecisionsRangeRequest struct {
	Instrument string `query:"instrument" validate:"required"`
	From       string `query:"from"`
	To         string `query:"to"`
	Limit      int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type SignalHistoryRequest struct {
	Signal string `query:"signal" validate:"required"`
	From   string `query:"from"`
	To     string `query:"to"`
}

// SelectBucketRequest carries a caller-supplied snapshot for a what-if
// evaluation across all buckets.
type SelectBucketRequest struct {
	Instrument  string    `json:"instrument" validate:"required"`
	LastPrice   float64   `json:"last_price" validate:"required,gt=0"`
	Returns     []float64 `json:"returns" validate:"required,min=1"`
	RealizedVol float64   `json:"realized_vol" validate:"gte=0"`
}
