// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "periodic"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	seatingOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seating_operations_total",
		Help:      "Seat and unseat attempts by outcome.",
	}, []string{"operation", "outcome"})

	inconsistencies = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "consistency_issues",
		Help:      "Table/reservation inconsistencies found by the last check.",
	}, []string{"kind"})

	repaired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consistency_repairs_total",
		Help:      "Inconsistencies repaired.",
	})
)

func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Seating outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func ObserveSeating(operation, outcome string) {
	seatingOps.WithLabelValues(operation, outcome).Inc()
}

// SetInconsistencies records the issue count per kind from a check.
func SetInconsistencies(counts map[string]int) {
	inconsistencies.Reset()
	for kind, n := range counts {
		inconsistencies.WithLabelValues(kind).Set(float64(n))
	}
}

func AddRepaired(n int) {
	repaired.Add(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
