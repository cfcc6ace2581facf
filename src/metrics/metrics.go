package metrics

import (
	"time"

	"sectorsguard/src/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorsguard_validation_runs_total",
		Help: "Dataset validation runs by final status",
	}, []string{"dataset", "status"})

	validationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sectorsguard_validation_duration_seconds",
		Help:    "Wall time of one dataset validation",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"dataset"})

	anomaliesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorsguard_anomalies_total",
		Help: "Anomalies found by severity",
	}, []string{"dataset", "severity"})

	checkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorsguard_check_failures_total",
		Help: "Checks that returned an error or panicked",
	}, []string{"dataset", "check"})

	persistAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorsguard_persist_attempts_total",
		Help: "Result insert attempts by outcome",
	}, []string{"outcome"})

	persistFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorsguard_persist_fallbacks_total",
		Help: "Results written to the local fallback directory",
	}, []string{"dataset"})
)

// ObserveRun records one finished validation.
func ObserveRun(result *model.ValidationResult, elapsed time.Duration, failedChecks []string) {
	validationRuns.WithLabelValues(result.DatasetName, string(result.Status)).Inc()
	validationDuration.WithLabelValues(result.DatasetName).Observe(elapsed.Seconds())
	for sev, n := range model.CountBySeverity(result.Anomalies) {
		anomaliesFound.WithLabelValues(result.DatasetName, string(sev)).Add(float64(n))
	}
	for _, c := range failedChecks {
		checkFailures.WithLabelValues(result.DatasetName, c).Inc()
	}
}

// PersistAttempt counts one insert attempt.
func PersistAttempt(ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	persistAttempts.WithLabelValues(outcome).Inc()
}

// PersistFallback counts a result written to local storage.
func PersistFallback(dataset string) {
	persistFallbacks.WithLabelValues(dataset).Inc()
}
