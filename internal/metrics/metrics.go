// Package metrics exposes node counters and gauges to Prometheus.
// All methods are safe on a nil *Metrics so components can run without metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Push kinds.
const (
	KindValue  = "value"
	KindAlert  = "alert"
	KindStatus = "status"
)

// Push results.
const (
	ResultOK      = "ok"
	ResultDropped = "dropped"
	ResultGated   = "gated"
)

// Metrics holds the node's collectors.
type Metrics struct {
	pushes     *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	connected  prometheus.Gauge
	values     *prometheus.GaugeVec
	readErrors *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_push_total",
			Help: "Store pushes by kind and result.",
		}, []string{"kind", "result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Alerts raised by sensor evaluators, whether or not delivered.",
		}, []string{"type"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_link_reconnect_attempts_total",
			Help: "Link connect attempts by result.",
		}, []string{"result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_link_connected",
			Help: "1 while the store link is up.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_sensor_value",
			Help: "Last sampled value per sensor and field.",
		}, []string{"sensor", "field"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_sensor_read_errors_total",
			Help: "Failed raw sensor reads.",
		}, []string{"sensor"}),
	}
	reg.MustRegister(m.pushes, m.alerts, m.reconnects, m.connected, m.values, m.readErrors)
	return m
}

// ObservePush counts one push attempt.
func (m *Metrics) ObservePush(kind, result string) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(kind, result).Inc()
}

// ObserveAlert counts one raised alert.
func (m *Metrics) ObserveAlert(alertType string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(alertType).Inc()
}

// ObserveReconnect counts one connect attempt.
func (m *Metrics) ObserveReconnect(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = ResultOK
	}
	m.reconnects.WithLabelValues(result).Inc()
}

// SetConnected records the link state.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// SetValue records the last sampled value of a sensor field.
func (m *Metrics) SetValue(sensorID, field string, v float64) {
	if m == nil {
		return
	}
	m.values.WithLabelValues(sensorID, field).Set(v)
}

// ObserveReadError counts a failed raw read.
func (m *Metrics) ObserveReadError(sensorID string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(sensorID).Inc()
}
