package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the event action pipeline.
type Metrics struct {
	ActionsProcessed   *prometheus.CounterVec
	ActionDuration     *prometheus.HistogramVec
	IdempotentReplays  prometheus.Counter
	TransitionDenied   *prometheus.CounterVec
	SideEffectFailures *prometheus.CounterVec
}

// New creates and registers the event metrics.
func New() *Metrics {
	return &Metrics{
		ActionsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_actions_processed_total",
			Help: "Actions committed to event logs, by action type.",
		}, []string{"action_type"}),
		ActionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civreg_action_duration_seconds",
			Help:    "Time from submission to commit, by action type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action_type"}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civreg_idempotent_replays_total",
			Help: "Submissions answered from a previously committed transaction id.",
		}),
		TransitionDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_transitions_denied_total",
			Help: "Action submissions denied by the transition validator, by reason.",
		}, []string{"reason"}),
		SideEffectFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_side_effect_failures_total",
			Help: "Post-commit side effects that failed, by collaborator.",
		}, []string{"collaborator"}),
	}
}

// RecordAction counts a committed action and observes its latency. Nil-safe
// so services constructed without metrics (tests) skip instrumentation.
func (m *Metrics) RecordAction(actionType string, seconds float64) {
	if m == nil {
		return
	}
	m.ActionsProcessed.WithLabelValues(actionType).Inc()
	m.ActionDuration.WithLabelValues(actionType).Observe(seconds)
}

func (m *Metrics) RecordIdempotentReplay() {
	if m == nil {
		return
	}
	m.IdempotentReplays.Inc()
}

func (m *Metrics) RecordTransitionDenied(reason string) {
	if m == nil {
		return
	}
	m.TransitionDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordSideEffectFailure(collaborator string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(collaborator).Inc()
}
