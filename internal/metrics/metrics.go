// Package metrics exposes Prometheus instrumentation for graph executions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskgraph"

// Metrics groups the collectors of the engine. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	nodesCompleted *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	nodesRunning   prometheus.Gauge
	executions     *prometheus.CounterVec
}

// New registers the engine collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		nodesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_completed_total",
			Help:      "Nodes resolved, by factory and outcome.",
		}, []string{"factory", "outcome"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Time from scheduling a node until it resolved.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"factory"}),
		nodesRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_running",
			Help:      "Nodes scheduled and not yet resolved.",
		}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Finished graph executions, by result.",
		}, []string{"result"}),
	}
}

// NodeScheduled records a node handed to its executor.
func (m *Metrics) NodeScheduled() {
	if m == nil {
		return
	}
	m.nodesRunning.Inc()
}

// NodeFinished records the outcome of a scheduled node.
func (m *Metrics) NodeFinished(factory, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.nodesRunning.Dec()
	m.nodeDuration.WithLabelValues(factory).Observe(elapsed.Seconds())
	m.nodesCompleted.WithLabelValues(factory, outcome).Inc()
}

// NodeResolvedUnscheduled records a node resolved without ever running.
func (m *Metrics) NodeResolvedUnscheduled(factory, outcome string) {
	if m == nil {
		return
	}
	m.nodesCompleted.WithLabelValues(factory, outcome).Inc()
}

// ExecutionFinished records the classification of a finished execution.
func (m *Metrics) ExecutionFinished(result string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(result).Inc()
}
