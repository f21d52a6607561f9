package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const resultSuccess = "success"

var (
	LoanOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_engine_operations_total",
			Help: "Total number of loan operations by outcome",
		},
		[]string{"operation", "result"},
	)

	LoanOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_engine_operation_duration_seconds",
			Help:    "Duration of loan operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_engine_cache_lookups_total",
			Help: "Loan cache lookups by result",
		},
		[]string{"result"},
	)

	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_engine_scheduler_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "result"},
	)

	InstallmentsMarkedOverdue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_engine_installments_marked_overdue_total",
			Help: "Installments flagged overdue by the scheduler",
		},
	)
)

// ResultLabel is "success" for a nil error and the business error code otherwise.
func ResultLabel(err error) string {
	if err == nil {
		return resultSuccess
	}
	return customError.CodeOf(err)
}

// ObserveOperation records the outcome and latency of one service operation.
func ObserveOperation(operation string, start time.Time, err error) {
	LoanOperations.WithLabelValues(operation, ResultLabel(err)).Inc()
	LoanOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveSchedulerRun counts one scheduled job execution.
func ObserveSchedulerRun(job string, err error) {
	SchedulerRuns.WithLabelValues(job, ResultLabel(err)).Inc()
}
