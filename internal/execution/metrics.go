package execution

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shardrun/internal/domain"
)

const metricsPrefix = "shardrun_"

var submissionsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricsPrefix + "submissions_total",
		Help: "Number of submission tasks by outcome",
	},
	[]string{"outcome"},
)

var submissionRetriesCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: metricsPrefix + "submission_retries_total",
		Help: "Number of retried matrix creation attempts",
	},
)

var submissionLatencyHist = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    metricsPrefix + "submission_latency_seconds",
		Help:    "Time taken to create one matrix, retries included",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	},
)

var matricesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricsPrefix + "matrices_total",
		Help: "Number of polled matrices by final state",
	},
	[]string{"state"},
)

func recordSubmission(err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	submissionsCounter.WithLabelValues(outcome).Inc()
	submissionLatencyHist.Observe(duration.Seconds())
}

func recordRetry() {
	submissionRetriesCounter.Inc()
}

func recordMatrixState(state domain.MatrixState) {
	matricesCounter.WithLabelValues(string(state)).Inc()
}
