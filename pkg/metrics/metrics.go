package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StaffOperations counts staff service operations by operation and result (success|failure).
	StaffOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpress_staff_operations_total",
			Help: "Total number of staff ticket operations",
		},
		[]string{"operation", "result"},
	)

	// ClaimSteps counts claim flow submissions by step (code|verify|resend|back) and outcome.
	ClaimSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpress_claim_steps_total",
			Help: "Total number of invitation claim flow steps",
		},
		[]string{"step", "outcome"},
	)

	// EmailDeliveries records notification attempts by kind (invite|verification) and result (sent|skipped|failed).
	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpress_email_deliveries_total",
			Help: "Total number of staff notification emails",
		},
		[]string{"kind", "result"},
	)

	// PermissionChecks counts scoped authorisation checks by scope (event|ticket|booth) and result (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpress_permission_checks_total",
			Help: "Total number of scoped permission checks",
		},
		[]string{"scope", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventpress_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result maps an error to the success|failure label used by operation counters.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
