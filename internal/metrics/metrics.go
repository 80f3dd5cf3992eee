package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portal"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Portal HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the backend by entity, method and status.",
		},
		[]string{"entity", "method", "status"},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"entity", "method"},
	)

	entityChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_changes_total",
			Help:      "Successful create/update/delete operations by entity.",
		},
		[]string{"entity", "action"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, backendRequests, backendLatency, entityChanges)
	})
}

// IncHTTP counts a served request.
func IncHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveBackend records one backend round trip. status 0 means no response.
func ObserveBackend(entity, method string, status int, dur time.Duration) {
	backendRequests.WithLabelValues(entity, method, strconv.Itoa(status)).Inc()
	backendLatency.WithLabelValues(entity, method).Observe(dur.Seconds())
}

// IncEntityChange counts a successful mutation.
func IncEntityChange(entity, action string) {
	entityChanges.WithLabelValues(entity, action).Inc()
}
