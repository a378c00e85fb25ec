// Package metrics defines the daemon's prometheus instrumentation
// (SPEC_FULL.md's domain-stack wiring for prometheus/client_golang,
// exercised regardless of whether --enable-diagnostic-web exposes
// them over HTTP — that HTTP exposition is out of scope here).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter/gauge the daemon updates as it runs.
type Metrics struct {
	SessionsTracked   prometheus.Gauge
	RequestsDispatched *prometheus.CounterVec
	ActiveWatchLeases prometheus.Gauge
	PluginActionsRun  *prometheus.CounterVec
}

// New constructs Metrics and registers them with reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sshlogd",
			Name:      "sessions_tracked",
			Help:      "Number of SSH sessions currently tracked.",
		}),
		RequestsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sshlogd",
			Name:      "requests_dispatched_total",
			Help:      "IPC requests dispatched, by payload type.",
		}, []string{"payload_type"}),
		ActiveWatchLeases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sshlogd",
			Name:      "active_watch_leases",
			Help:      "Number of EVENT_WATCH_REQUEST leases currently active.",
		}),
		PluginActionsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sshlogd",
			Name:      "plugin_actions_total",
			Help:      "Plugin actions executed, by action name and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(m.SessionsTracked, m.RequestsDispatched, m.ActiveWatchLeases, m.PluginActionsRun)
	return m
}
