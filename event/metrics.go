package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a Monitor backed by Prometheus counters and gauges, suitable
// for registering alongside an application's own collectors. Construct one
// with NewMetrics and pass its Monitor field (or merge it with an
// application-supplied Monitor via Merge) into a topology's options.
type Metrics struct {
	Monitor *Monitor

	serversUp          *prometheus.GaugeVec
	heartbeatsTotal    *prometheus.CounterVec
	heartbeatFailures  *prometheus.CounterVec
	heartbeatDurations *prometheus.HistogramVec
	topologyChanges    prometheus.Counter
}

// NewMetrics builds a Metrics collector and registers it with reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		serversUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "servers_up",
			Help:      "1 if the server is currently reachable, 0 otherwise, by address.",
		}, []string{"address"}),
		heartbeatsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Total heartbeats sent, by address.",
		}, []string{"address"}),
		heartbeatFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_failures_total",
			Help:      "Total failed heartbeats, by address.",
		}, []string{"address"}),
		heartbeatDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "heartbeat_duration_seconds",
			Help:      "Heartbeat round-trip time, by address.",
		}, []string{"address"}),
		topologyChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_description_changes_total",
			Help:      "Total topology description changes observed.",
		}),
	}

	reg.MustRegister(m.serversUp, m.heartbeatsTotal, m.heartbeatFailures, m.heartbeatDurations, m.topologyChanges)

	m.Monitor = &Monitor{
		ServerOpening: func(e *ServerOpeningEvent) {
			m.serversUp.WithLabelValues(string(e.Address)).Set(0)
		},
		ServerClosed: func(e *ServerClosedEvent) {
			m.serversUp.DeleteLabelValues(string(e.Address))
		},
		ServerHeartbeatStarted: func(e *ServerHeartbeatStartedEvent) {
			m.heartbeatsTotal.WithLabelValues(string(e.Address)).Inc()
		},
		ServerHeartbeatSucceeded: func(e *ServerHeartbeatSucceededEvent) {
			m.serversUp.WithLabelValues(string(e.Address)).Set(1)
			m.heartbeatDurations.WithLabelValues(string(e.Address)).Observe(e.Duration.Seconds())
		},
		ServerHeartbeatFailed: func(e *ServerHeartbeatFailedEvent) {
			m.serversUp.WithLabelValues(string(e.Address)).Set(0)
			m.heartbeatFailures.WithLabelValues(string(e.Address)).Inc()
			m.heartbeatDurations.WithLabelValues(string(e.Address)).Observe(e.Duration.Seconds())
		},
		TopologyDescriptionChanged: func(*TopologyDescriptionChangedEvent) {
			m.topologyChanges.Inc()
		},
	}

	return m
}
