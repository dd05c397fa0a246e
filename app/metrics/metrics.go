package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubecomb_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubecomb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubecomb_upstream_requests_total",
			Help: "Outbound upstream requests by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: json, xml
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubecomb_upstream_request_duration_seconds",
			Help:    "Duration of outbound upstream requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubecomb_upstream_retries_total",
			Help: "Requests retried after an upstream rate-limit response",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubecomb_cache_lookups_total",
			Help: "Cache lookups by operation and result",
		},
		[]string{"operation", "result"},
	)

	KeyPoolExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubecomb_keypool_exhausted_total",
			Help: "Key selections that failed because every key was over quota",
		},
	)

	BatchTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubecomb_batch_tasks_total",
			Help: "Batch sub-requests by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	LogStoreDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubecomb_log_store_dropped_total",
			Help: "Log records not persisted because the writer queue was full",
		},
	)
)

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordUpstream(kind, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(kind, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordCacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(operation, result).Inc()
}

func RecordBatchTask(taskType, outcome string) {
	BatchTasks.WithLabelValues(taskType, outcome).Inc()
}
