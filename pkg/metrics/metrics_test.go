package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAlertMetrics(reg)

	m.IncEvaluation(OutcomeEvaluated)
	m.IncEvaluation(OutcomeEvaluated)
	m.IncEvaluation(OutcomeIgnored)
	m.IncBreach("9mm")
	m.IncSkip(SkipInactivePerson)
	m.IncDispatch("")
	m.ObserveDuration(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues(OutcomeEvaluated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues(OutcomeIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breaches.WithLabelValues("9mm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skips.WithLabelValues(SkipInactivePerson)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("unknown")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestDeliveryMetricsCounters(t *testing.T) {
	m := NewDeliveryMetrics(prometheus.NewRegistry())
	m.IncSend("SMS", true)
	m.IncSend("EMAIL", false)
	m.IncSend("EMAIL", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sends.WithLabelValues("SMS", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sends.WithLabelValues("EMAIL", "failure")))
}

func TestNilRecordersAreSafe(t *testing.T) {
	var alerts *AlertMetrics
	alerts.IncEvaluation(OutcomeFailed)
	alerts.ObserveDuration(time.Second)

	unregistered := NewAlertMetrics(nil)
	unregistered.IncBreach("9mm")

	var delivery *DeliveryMetrics
	delivery.IncSend("SMS", true)
	NewDeliveryMetrics(nil).IncSend("SMS", false)
}
