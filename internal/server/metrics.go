package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bhasha_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Detection metrics
	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_detections_total",
			Help: "Total number of resolved detections",
		},
		[]string{"service", "language"},
	)

	heuristicMethodsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_heuristic_methods_total",
			Help: "Heuristic classifier decisions by deciding rule",
		},
		[]string{"method"}, // method: single, exclusive, frequency, greeting, default, ...
	)

	detectionFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bhasha_detection_fallbacks_total",
			Help: "Detections answered by the heuristic because no remote service succeeded",
		},
	)

	detectionTextLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bhasha_detection_text_runes",
			Help:    "Length of detected text in runes",
			Buckets: []float64{2, 5, 10, 20, 50, 100, 250, 500, 1000},
		},
	)

	// Chat metrics
	chatRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_chat_replies_total",
			Help: "Total number of chat turns",
		},
		[]string{"status"}, // status: ok, failed
	)

	chatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bhasha_chat_sessions_active",
			Help: "Number of chat sessions held in memory",
		},
	)
)
