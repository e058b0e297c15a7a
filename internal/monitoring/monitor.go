// Package monitoring exposes the reconciler's prometheus metrics.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tool invocation outcomes
const (
	ToolAdmitted  = "admitted"
	ToolRejected  = "rejected"
	ToolDuplicate = "duplicate"
)

// Monitor collects and provides metrics for the ordering service
type Monitor struct {
	registry  *prometheus.Registry
	startTime time.Time

	turns           *prometheus.CounterVec
	turnDuration    prometheus.Histogram
	toolInvocations *prometheus.CounterVec
	ordersConfirmed prometheus.Counter
	totalDrift      prometheus.Counter
	activeSessions  prometheus.Gauge
}

// NewMonitor creates a monitor with its own registry
func NewMonitor() *Monitor {
	m := &Monitor{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableside_turns_total",
				Help: "Conversational turns by outcome",
			},
			[]string{"outcome"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tableside_turn_duration_seconds",
				Help:    "Time from sending a turn to settling it",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
			},
		),
		toolInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableside_tool_invocations_total",
				Help: "Tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		ordersConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableside_orders_confirmed_total",
			Help: "Order confirmations produced",
		}),
		totalDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableside_order_total_drift_total",
			Help: "Confirmations where the model's claimed totals disagreed with the cart",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tableside_active_sessions",
			Help: "Sessions currently held in memory",
		}),
	}

	m.registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.toolInvocations,
		m.ordersConfirmed,
		m.totalDrift,
		m.activeSessions,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn records a settled turn
func (m *Monitor) RecordTurn(outcome string, elapsed time.Duration) {
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

// RecordTool records the fate of one tool invocation
func (m *Monitor) RecordTool(tool, outcome string) {
	m.toolInvocations.WithLabelValues(tool, outcome).Inc()
}

// RecordConfirmation records a produced confirmation and whether the model's
// totals drifted from it
func (m *Monitor) RecordConfirmation(drifted bool) {
	m.ordersConfirmed.Inc()
	if drifted {
		m.totalDrift.Inc()
	}
}

// SetActiveSessions sets the live session gauge
func (m *Monitor) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Uptime returns how long the monitor has been running
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}
