package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts HTTP requests issued, by outcome.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspireq_fetch_requests_total",
			Help: "Total number of remote requests",
		},
		[]string{"outcome"}, // "ok", "status", "transport"
	)

	// Retries counts transient transfer failures that were retried.
	Retries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspireq_fetch_retries_total",
			Help: "Total number of retries after a transient transfer failure",
		},
	)

	// CacheServed counts Get calls answered from the response cache.
	CacheServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspireq_fetch_cache_served_total",
			Help: "Total number of fetches served from the response cache",
		},
	)

	// RequestDuration tracks the latency of remote requests.
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspireq_fetch_request_duration_seconds",
			Help:    "Duration of remote requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
