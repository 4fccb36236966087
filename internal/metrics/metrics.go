// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline: request counts and latency, pages fetched, and moments found
// per run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysisRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipscan_analysis_requests_total",
		Help: "Total analysis requests by outcome category.",
	}, []string{"outcome"})

	AnalysisDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipscan_analysis_duration_seconds",
		Help:    "Wall-clock duration of a full analysis run.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	PagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipscan_pages_fetched_total",
		Help: "Total comment feed pages fetched across all analysis runs.",
	})

	CommentFeedRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipscan_comment_feed_retries_total",
		Help: "Total comment feed fetch attempts that failed with a retryable error.",
	})

	MomentsFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipscan_moments_found",
		Help:    "Number of moments surfaced per analysis run.",
		Buckets: prometheus.LinearBuckets(0, 2, 10),
	})
)
