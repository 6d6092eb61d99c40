package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration by route pattern and method.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	// AuthzDecisions tracks access evaluator outcomes.
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total access-control decisions by check and outcome",
		},
		[]string{"check", "decision"},
	)

	// JoinRequestOutcomes tracks terminal join-request states, including
	// conflict auto-rejections.
	JoinRequestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_join_request_outcomes_total",
			Help: "Total processed join requests by terminal status",
		},
		[]string{"status"},
	)
)

// ObserveRequest records one HTTP request's duration.
func ObserveRequest(method, route string, status int, d time.Duration) {
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordDecision increments the authorization decision counter.
func RecordDecision(check string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(check, decision).Inc()
}
