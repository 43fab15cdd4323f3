package metrics

import "github.com/prometheus/client_golang/prometheus"

// DeliveryMetrics counts dispatcher sends by channel and result.
type DeliveryMetrics struct {
	sends *prometheus.CounterVec
}

func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "armory_notification_sends_total",
		Help: "Notification dispatcher results, by channel and result.",
	}, []string{"channel", "result"})
	reg.MustRegister(sends)
	return &DeliveryMetrics{sends: sends}
}

// IncSend records one dispatcher result.
func (m *DeliveryMetrics) IncSend(channel string, ok bool) {
	if m == nil || m.sends == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.sends.WithLabelValues(normalizeLabel(channel), result).Inc()
}
