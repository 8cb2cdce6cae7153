package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	PostsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "posts_in_queue",
			Help: "Current number of posts waiting for a worker.",
		},
	)

	PostsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_processed_total",
			Help: "Total number of posts run through the pipeline.",
		},
		[]string{"outcome"}, // skipped, no_media, passed, blocked, no_container, failed
	)

	MediaCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "post_media_candidates",
			Help:    "Number of candidate media URLs extracted per post.",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 10},
		},
	)

	MediaWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_wait_duration_seconds",
			Help:    "Time spent waiting for a media container to render its image.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"result"}, // ready, timeout, cancelled, error
	)

	ClassifierRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_requests_total",
			Help: "Total number of classification requests.",
		},
		[]string{"result"}, // flagged, clear, error
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classifier_request_duration_seconds",
			Help:    "Duration of classification requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	PostsBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_blocked_total",
			Help: "Total number of posts deleted or blurred.",
		},
		[]string{"mode"},
	)
)
