package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tickers  *prometheus.CounterVec
	fetches  *prometheus.CounterVec
	fetchDur *prometheus.HistogramVec
	alerts   *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tickers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpwatch_tickers_total",
				Help: "Tickers processed per pipeline stage and result",
			},
			[]string{"stage", "result"},
		),
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpwatch_fetches_total",
				Help: "Market data fetches by source and result",
			},
			[]string{"source", "result"},
		),
		fetchDur: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pumpwatch_fetch_duration_seconds",
				Help:    "Market data fetch latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpwatch_alerts_total",
				Help: "Alerts appended or re-classified",
			},
			[]string{"kind"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpwatch_outcomes_total",
				Help: "Outcome labels assigned",
			},
			[]string{"outcome"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pumpwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTicker counts one ticker passing through a stage (analyze, scan, track).
func (r *Recorder) RecordTicker(stage, result string) {
	r.tickers.WithLabelValues(stage, result).Inc()
}

// RecordFetch counts a market data fetch and observes its latency.
func (r *Recorder) RecordFetch(source, result string, seconds float64) {
	r.fetches.WithLabelValues(source, result).Inc()
	r.fetchDur.WithLabelValues(source).Observe(seconds)
}

func (r *Recorder) RecordAlerts(kind string, n int) {
	r.alerts.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) RecordOutcome(outcome string, n int) {
	r.outcomes.WithLabelValues(outcome).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordTicker(string, string)         {}
func (Nop) RecordFetch(string, string, float64) {}
func (Nop) RecordAlerts(string, int)            {}
func (Nop) RecordOutcome(string, int)           {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLatency(string, float64)       {}
