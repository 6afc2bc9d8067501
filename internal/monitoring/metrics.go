// Package monitoring exposes Prometheus metrics for admission, token
// issuance, moderation and the reclamation sweep.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	admissionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_admission_operations_total",
			Help: "Admission operations by outcome",
		},
		[]string{"operation", "result"},
	)

	admissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classroom_admission_duration_seconds",
			Help:    "Time spent in admission transactions, including the session lock wait",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	tokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_rtc_tokens_issued_total",
			Help: "Realtime transport tokens issued",
		},
		[]string{"provider", "role", "dummy"},
	)

	moderationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_moderation_actions_total",
			Help: "Moderation actions applied",
		},
		[]string{"action"},
	)

	sweepReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_sweep_reclaimed_total",
			Help: "Reservations released by the reclamation sweep",
		},
		[]string{"kind"},
	)

	sweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_sweep_runs_total",
			Help: "Reclamation sweep runs",
		},
		[]string{"status"},
	)
)

// ObserveAdmission records one admission operation (join, hold, leave,
// evict) with its result label and duration.
func ObserveAdmission(operation, result string, d time.Duration) {
	admissionOperations.WithLabelValues(operation, result).Inc()
	admissionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func TokenIssued(provider, role string, dummy bool) {
	tokensIssued.WithLabelValues(provider, role, strconv.FormatBool(dummy)).Inc()
}

func ModerationAction(action string) {
	moderationActions.WithLabelValues(action).Inc()
}

// SweepCompleted records a sweep run and the rows it reclaimed.
func SweepCompleted(pending, confirmed int64, err error) {
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		return
	}
	sweepRuns.WithLabelValues("ok").Inc()
	sweepReclaimed.WithLabelValues("pending").Add(float64(pending))
	sweepReclaimed.WithLabelValues("confirmed").Add(float64(confirmed))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
