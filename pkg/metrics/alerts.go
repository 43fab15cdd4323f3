package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcomes.
const (
	OutcomeIgnored   = "ignored"
	OutcomeNoRules   = "no_rules"
	OutcomeEvaluated = "evaluated"
	OutcomeFailed    = "failed"
)

// Skip reasons for a breached rule that produced no dispatch.
const (
	SkipMissingPerson  = "missing_person"
	SkipInactivePerson = "inactive_person"
	SkipEmptyAddress   = "empty_address"
)

// AlertMetrics records threshold evaluation activity.
type AlertMetrics struct {
	evaluations *prometheus.CounterVec
	duration    prometheus.Histogram
	breaches    *prometheus.CounterVec
	skips       *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
}

// NewAlertMetrics registers the evaluator metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAlertMetrics(reg prometheus.Registerer) *AlertMetrics {
	if reg == nil {
		return &AlertMetrics{}
	}
	m := &AlertMetrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_threshold_evaluations_total",
			Help: "Change batches handled by the threshold evaluator, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "armory_threshold_evaluation_duration_seconds",
			Help:    "Time spent reading collections and evaluating rules.",
			Buckets: prometheus.DefBuckets,
		}),
		breaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_threshold_breaches_total",
			Help: "Enabled rules whose caliber total fell below the minimum.",
		}, []string{"caliber"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_threshold_skips_total",
			Help: "Breached rules skipped during person resolution.",
		}, []string{"reason"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "armory_alert_dispatches_total",
			Help: "Alerts handed to the async dispatcher, by channel.",
		}, []string{"channel"}),
	}
	reg.MustRegister(m.evaluations, m.duration, m.breaches, m.skips, m.dispatches)
	return m
}

func (m *AlertMetrics) IncEvaluation(outcome string) {
	if m == nil || m.evaluations == nil {
		return
	}
	m.evaluations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *AlertMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func (m *AlertMetrics) IncBreach(caliber string) {
	if m == nil || m.breaches == nil {
		return
	}
	m.breaches.WithLabelValues(normalizeLabel(caliber)).Inc()
}

func (m *AlertMetrics) IncSkip(reason string) {
	if m == nil || m.skips == nil {
		return
	}
	m.skips.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *AlertMetrics) IncDispatch(channel string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(normalizeLabel(channel)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
