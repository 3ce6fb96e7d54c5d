// Package metrics содержит Prometheus-метрики шлюза.
// Все методы безопасны для nil-получателя, поэтому метрики можно не подключать в тестах.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aihub"

// Metrics набор счётчиков и гистограмм шлюза.
type Metrics struct {
	guardDecisions     *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec
	usageIncrements    *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		guardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Access guard decisions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		capabilityDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Duration of provider calls by tool and status.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"tool", "status"}),
		usageIncrements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_increments_total",
			Help:      "Metered free-tier calls by tool.",
		}, []string{"tool"}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Received webhook events by source, type and outcome.",
		}, []string{"source", "type", "outcome"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_breaker_open",
			Help:      "1 when the circuit breaker of a tool is open.",
		}, []string{"tool"}),
	}
}

func (m *Metrics) GuardDecision(tool, outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveCapability(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.capabilityDuration.WithLabelValues(tool, status).Observe(d.Seconds())
}

func (m *Metrics) UsageIncremented(tool string) {
	if m == nil {
		return
	}
	m.usageIncrements.WithLabelValues(tool).Inc()
}

func (m *Metrics) WebhookEvent(source, eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(source, eventType, outcome).Inc()
}

func (m *Metrics) BreakerOpen(tool string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(tool).Set(v)
}
