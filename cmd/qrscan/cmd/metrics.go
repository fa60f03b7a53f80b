package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_http_requests_total",
			Help: "Total number of HTTP requests handled by the decode endpoint",
		},
		[]string{"status"},
	)

	decodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrscan_decode_duration_seconds",
			Help:    "Time spent running the strategy controller over one uploaded image",
			Buckets: prometheus.DefBuckets,
		},
	)

	codesFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrscan_codes_found",
			Help:    "Number of QR codes found per decode request",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		},
	)

	binarizerAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_binarizer_attempts_total",
			Help: "Number of times each binarizer strategy was tried",
		},
		[]string{"kind"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_failures_total",
			Help: "Failure reasons emitted by the strategy controller",
		},
		[]string{"reason"},
	)

	erasuresCorrectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrscan_erasures_corrected_total",
			Help: "Total Reed-Solomon erasure positions corrected across all decodes",
		},
	)
)
