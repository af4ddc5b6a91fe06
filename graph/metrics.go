package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects execution metrics for production monitoring.
//
// Metrics exposed (all namespaced "graphrun_"):
//
//  1. runs_total (counter): Terminated runs by terminal status.
//  2. inflight_runs (gauge): Runs currently executing.
//  3. node_latency_ms (histogram): Capability execution duration, labelled
//     by node and outcome.
//  4. run_iterations (histogram): Iterations consumed per run.
//  5. condition_eval_failures_total (counter): Conditions treated as false
//     because they failed to evaluate cleanly, by graph.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine := graph.New(resolver, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe; all updates go through prometheus collectors.
type PrometheusMetrics struct {
	runsTotal         *prometheus.CounterVec
	inflightRuns      prometheus.Gauge
	nodeLatency       *prometheus.HistogramVec
	runIterations     prometheus.Histogram
	conditionFailures *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers all engine metrics with the
// provided registry. Pass prometheus.DefaultRegisterer for the global
// registry, or a dedicated prometheus.NewRegistry() for isolation.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrun",
			Name:      "runs_total",
			Help:      "Terminated runs by terminal status",
		}, []string{"status"}),

		inflightRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphrun",
			Name:      "inflight_runs",
			Help:      "Runs currently executing",
		}),

		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "graphrun",
			Name:      "node_latency_ms",
			Help:      "Capability execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node", "status"}),

		runIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "graphrun",
			Name:      "run_iterations",
			Help:      "Iterations consumed per run",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),

		conditionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrun",
			Name:      "condition_eval_failures_total",
			Help:      "Edge conditions treated as false because evaluation failed",
		}, []string{"graph_id"}),
	}
}

// RunStarted marks a run as in flight.
func (pm *PrometheusMetrics) RunStarted() {
	pm.inflightRuns.Inc()
}

// RunFinished records a terminated run and its iteration count.
func (pm *PrometheusMetrics) RunFinished(status Status, iterations int) {
	pm.inflightRuns.Dec()
	pm.runsTotal.WithLabelValues(string(status)).Inc()
	pm.runIterations.Observe(float64(iterations))
}

// RecordNodeLatency records one capability execution. Status is "success"
// or "error".
func (pm *PrometheusMetrics) RecordNodeLatency(node string, latency time.Duration, status string) {
	pm.nodeLatency.WithLabelValues(node, status).Observe(float64(latency.Milliseconds()))
}

// ConditionFalseOnError counts a condition that was treated as false because
// it failed to evaluate cleanly.
func (pm *PrometheusMetrics) ConditionFalseOnError(graphID string) {
	pm.conditionFailures.WithLabelValues(graphID).Inc()
}
