package models

import "time"

// Quote is one real-time price point from the market data stream.
type Quote struct {
	Instrument string
	Price      float64
	Volume     float64
	Timestamp  int64 // unix seconds
}

// MarketSnapshot is the per-cycle view of recent market data handed to every
// SignalProvider and the DirectionModel. Built by the market data pipeline,
// never written during fan-out.
type MarketSnapshot struct {
	Instrument  string    `json:"instrument"`
	Timestamp   time.Time `json:"timestamp"`
	LastPrice   float64   `json:"last_price"`
	Returns     []float64 `json:"returns"`       // trailing log returns, oldest first
	RealizedVol float64   `json:"realized_vol"`  // annualized sigma over the trailing window
}
