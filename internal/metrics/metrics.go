package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_chat_requests_total",
			Help: "Total /chat requests by resolved intent",
		},
		[]string{"intent"},
	)

	ChatRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_chat_request_duration_seconds",
			Help:    "End-to-end /chat handling duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// Retrieval metrics
	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_source_fetch_errors_total",
			Help: "Upstream source failures by tier",
		},
		[]string{"source"}, // "sheet", "rss", "googlenews", "article"
	)

	CandidatesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nova_candidates_returned",
			Help:    "Candidate list size per news turn",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		},
	)

	FeedsSkippedRateLimit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_feeds_skipped_rate_limit_total",
			Help: "Feed fetches skipped by the per-user feed gate",
		},
	)

	// Summarizer metrics
	SummaryFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nova_summary_fallbacks_total",
			Help: "Summaries served from the extractive fallback",
		},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_model_calls_total",
			Help: "Generative model calls by outcome",
		},
		[]string{"kind", "outcome"}, // kind: "summary", "topic", "intent"; outcome: "ok", "error"
	)
)
