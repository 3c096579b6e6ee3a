// Package metrics registers the Prometheus instrumentation the kernel
// exposes, grounded on tracing.Metrics's promauto-registered
// HistogramVec/CounterVec/GaugeVec set, narrowed from the tracing
// package's broad action/workflow/GDPR surface down to the receipt and
// scheduler events this kernel actually emits (spec §6, §8).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the kernel's Prometheus collectors.
type Metrics struct {
	TickHistogram    *prometheus.HistogramVec
	ReceiptsTotal    *prometheus.CounterVec
	ViolationsTotal  *prometheus.CounterVec
	RestartsTotal    *prometheus.CounterVec
	ActiveCasesGauge prometheus.Gauge
	PolicyVersion    prometheus.Gauge
}

// New registers the kernel's collectors under namespace (defaulting to
// "workflowkernel" when empty).
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "workflowkernel"
	}
	return &Metrics{
		TickHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pattern_ticks",
				Help:      "Ticks consumed executing a pattern, by pattern id and priority lane.",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
			},
			[]string{"pattern_id", "priority"},
		),
		ReceiptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receipts_total",
				Help:      "Total receipts appended, by kind.",
			},
			[]string{"kind"},
		),
		ViolationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "budget_violations_total",
				Help:      "Total hot-path budget violations, by priority lane.",
			},
			[]string{"priority"},
		),
		RestartsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "supervisor_restarts_total",
				Help:      "Total supervised-child restarts, by child name and strategy.",
			},
			[]string{"child", "strategy"},
		),
		ActiveCasesGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_cases",
				Help:      "Number of non-terminal cases currently tracked.",
			},
		),
		PolicyVersion: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "policy_version",
				Help:      "Version number of the currently installed policy.",
			},
		),
	}
}

// ObserveReceipt records a receipt of the given kind.
func (m *Metrics) ObserveReceipt(kind string) {
	m.ReceiptsTotal.WithLabelValues(kind).Inc()
}

// ObserveTicks records ticks consumed by a pattern under a priority lane.
func (m *Metrics) ObserveTicks(patternID, priority string, ticks uint32) {
	m.TickHistogram.WithLabelValues(patternID, priority).Observe(float64(ticks))
}

// ObserveViolation records a single hot-path budget violation.
func (m *Metrics) ObserveViolation(priority string) {
	m.ViolationsTotal.WithLabelValues(priority).Inc()
}

// ObserveRestart records a single supervised-child restart.
func (m *Metrics) ObserveRestart(child, strategy string) {
	m.RestartsTotal.WithLabelValues(child, strategy).Inc()
}
