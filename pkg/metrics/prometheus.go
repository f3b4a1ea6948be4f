package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal      *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	signalWeight     *prometheus.GaugeVec
	confidence       *prometheus.GaugeVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigfuse_cycles_total",
				Help: "Fusion cycles by strategy, action, and trade-worthiness",
			},
			[]string{"strategy", "action", "trade_worthy"},
		),
		providerFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigfuse_provider_failures_total",
				Help: "Degraded provider results by signal and reason",
			},
			[]string{"signal", "reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigfuse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		signalWeight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigfuse_signal_weight",
				Help: "Current adaptive weight per signal",
			},
			[]string{"signal"},
		),
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigfuse_decision_confidence",
				Help: "Confidence of the most recent decision per strategy",
			},
			[]string{"strategy"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigfuse_last_price",
				Help: "Last observed price for an instrument",
			},
			[]string{"instrument"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigfuse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records one completed fusion cycle.
func (r *Recorder) RecordCycle(strategyID, action string, tradeWorthy bool) {
	r.cyclesTotal.WithLabelValues(strategyID, action, strconv.FormatBool(tradeWorthy)).Inc()
}

// RecordProviderFailure records a degraded provider result.
func (r *Recorder) RecordProviderFailure(signal, reason string) {
	r.providerFailures.WithLabelValues(signal, reason).Inc()
}

// RecordSignalWeight records the active weight for a signal.
func (r *Recorder) RecordSignalWeight(signal string, weight float64) {
	r.signalWeight.WithLabelValues(signal).Set(weight)
}

// RecordConfidence records the latest decision confidence for a strategy.
func (r *Recorder) RecordConfidence(strategyID string, confidence float64) {
	r.confidence.WithLabelValues(strategyID).Set(confidence)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
