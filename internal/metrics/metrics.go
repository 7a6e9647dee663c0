package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "copyjob"
)

var (
	// Management plane
	ARMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "arm_requests_total",
		Help:      "Count of management-plane requests by method and response status.",
	}, []string{"method", "status"})

	// Prerequisite resolution
	SectionValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "section_validations_total",
		Help:      "Number of prerequisite section evaluations by outcome.",
	}, []string{"section", "outcome"})

	SectionValidationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "section_validation_duration_seconds",
		Help:      "Time taken by prerequisite section validators.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"section"})

	StaleValidationsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_validations_discarded_total",
		Help:      "Validator results dropped because their cache was closed or reset.",
	})

	RemediationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remediations_total",
		Help:      "Count of remediation attempts by section and outcome.",
	}, []string{"section", "outcome"})

	// Job monitoring
	JobPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_polls_total",
		Help:      "Count of job list polls by outcome (ok, error, skipped).",
	}, []string{"outcome"})

	JobStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_status_transitions_total",
		Help:      "Number of polls whose job list differed from the previous poll.",
	}, []string{"account"})
)
