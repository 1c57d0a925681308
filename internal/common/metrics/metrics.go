package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_stage_calls_total",
			Help: "Total number of generation stage calls by outcome",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gem_stage_duration_seconds",
			Help:    "Duration of generation stage calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"stage"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_retry_attempts_total",
			Help: "Retry policy attempts by policy and outcome",
		},
		[]string{"policy", "outcome"},
	)

	DecoderStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_decoder_strategy_total",
			Help: "Which decoding strategy produced the canonical result",
		},
		[]string{"strategy"},
	)

	FilterCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_filter_candidates_total",
			Help: "Candidates classified by the filter engine, by tier",
		},
		[]string{"tier"},
	)

	EnrichmentItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_enrichment_items_total",
			Help: "Per-candidate detail fetches by outcome",
		},
		[]string{"outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gem_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gem_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gem_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"route"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gem_sessions_active",
			Help: "Number of live pipeline sessions",
		},
	)
)
