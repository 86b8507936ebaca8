// internal/app/metrics.go
package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "originality_job_runs_total",
			Help: "Job invocations by result (completed or aborted).",
		},
		[]string{"job", "result"},
	)

	jobDocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "originality_documents_processed_total",
			Help: "Documents handled by the jobs, by outcome.",
		},
		[]string{"job", "outcome"},
	)

	jobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "originality_job_duration_seconds",
			Help:    "Duration of job invocations in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"job"},
	)

	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "originality_refresh_requests_total",
			Help: "Interactive refresh requests by result.",
		},
		[]string{"result"},
	)
)
