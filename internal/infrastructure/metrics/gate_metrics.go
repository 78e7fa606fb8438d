// Package metrics records gate outcomes as Prometheus metrics.
package metrics

import (
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "plumbline"

// Ensure interface compliance
var _ ports.GateMetrics = (*GateMetrics)(nil)

// GateMetrics implements ports.GateMetrics on its own registry so one
// process can hold several independent sets.
type GateMetrics struct {
	registry *prometheus.Registry

	// reports counts gate reports.
	// Labels: gate, checkpoint, result (valid, invalid)
	reports *prometheus.CounterVec

	// violations counts violations by code.
	// Labels: gate, code, severity
	violations *prometheus.CounterVec

	// scores tracks the distribution of report scores.
	// Labels: gate
	scores *prometheus.HistogramVec

	// retryDecisions counts fingerprint retry actions.
	// Labels: action
	retryDecisions *prometheus.CounterVec

	// corrections counts correction loop outcomes.
	// Labels: status
	corrections *prometheus.CounterVec

	// correctionPasses measures passes used per loop.
	correctionPasses prometheus.Histogram
}

// NewGateMetrics creates the metrics on a fresh registry.
func NewGateMetrics() *GateMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &GateMetrics{
		registry: reg,
		reports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "reports_total",
			Help:      "Total gate reports by result",
		}, []string{"gate", "checkpoint", "result"}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "violations_total",
			Help:      "Total violations by code",
		}, []string{"gate", "code", "severity"}),
		scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "score",
			Help:      "Distribution of gate scores",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.85, 0.9, 0.95, 1.0},
		}, []string{"gate"}),
		retryDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fingerprint",
			Name:      "retry_decisions_total",
			Help:      "Total fingerprint retry decisions by action",
		}, []string{"action"}),
		corrections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correction",
			Name:      "loops_total",
			Help:      "Total correction loops by final status",
		}, []string{"status"}),
		correctionPasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "correction",
			Name:      "passes",
			Help:      "Passes used per correction loop",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 10},
		}),
	}
}

// Registry exposes the underlying registry for scraping or export.
func (m *GateMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReport records one gate report.
func (m *GateMetrics) ObserveReport(report *entities.ValidationReport) {
	if report == nil {
		return
	}
	result := "valid"
	if !report.Valid {
		result = "invalid"
	}
	m.reports.WithLabelValues(string(report.Gate), string(report.Checkpoint), result).Inc()

	for _, v := range report.Violations {
		m.violations.WithLabelValues(string(report.Gate), v.Code, string(v.Severity)).Inc()
	}
	if report.Score != nil {
		m.scores.WithLabelValues(string(report.Gate)).Observe(*report.Score)
	}
}

// ObserveRetryDecision records a fingerprint retry action.
func (m *GateMetrics) ObserveRetryDecision(action values.RunAction) {
	m.retryDecisions.WithLabelValues(string(action)).Inc()
}

// ObserveCorrection records a finished correction loop.
func (m *GateMetrics) ObserveCorrection(status values.CorrectionStatus, passes int) {
	m.corrections.WithLabelValues(string(status)).Inc()
	m.correctionPasses.Observe(float64(passes))
}

// WriteTextfile writes the registry in Prometheus text format, for the
// node exporter textfile collector.
func (m *GateMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
