package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AgentInvocations counts structured-output agent executions
	AgentInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustlens",
			Name:      "agent_invocations_total",
			Help:      "Total number of agent executions",
		},
		[]string{"agent"},
	)

	// AgentFailures counts failed agent executions by failure class
	AgentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustlens",
			Name:      "agent_failures_total",
			Help:      "Total number of failed agent executions",
		},
		[]string{"agent", "reason"},
	)

	// AssessmentsCreated counts assessment records created via the API
	AssessmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trustlens",
			Name:      "assessments_created_total",
			Help:      "Total number of assessment records created",
		},
	)

	// AssessmentsFinished counts pipeline runs reaching a terminal status
	AssessmentsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustlens",
			Name:      "assessments_finished_total",
			Help:      "Total number of pipeline runs reaching a terminal status",
		},
		[]string{"status"},
	)

	// NVDRequests counts outbound vulnerability-database requests
	NVDRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustlens",
			Name:      "nvd_requests_total",
			Help:      "Total number of NVD API requests",
		},
		[]string{"outcome"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(AgentInvocations)
		prometheus.DefaultRegisterer.Register(AgentFailures)
		prometheus.DefaultRegisterer.Register(AssessmentsCreated)
		prometheus.DefaultRegisterer.Register(AssessmentsFinished)
		prometheus.DefaultRegisterer.Register(NVDRequests)
	})
}
