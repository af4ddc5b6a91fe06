package graph

import "github.com/graphrun/graphrun/graph/emit"

// DefaultIterationCap bounds a run's total node executions when no explicit
// cap is configured. It is a plain counter over executed iterations, not
// cycle detection: a long acyclic chain and a tight loop are bounded the
// same way.
const DefaultIterationCap = 100

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine := graph.New(registry,
//	    graph.WithIterationCap(50),
//	    graph.WithEmitter(emit.NewLogEmitter(os.Stderr, false)),
//	)
type Option func(*engineConfig)

type engineConfig struct {
	iterationCap int
	emitter      emit.Emitter
	metrics      *PrometheusMetrics
}

// WithIterationCap sets the default iteration cap for runs executed by this
// engine. Individual runs may override it via WithRunIterationCap.
//
// Values <= 0 fall back to DefaultIterationCap; the engine never runs
// unbounded.
func WithIterationCap(n int) Option {
	return func(cfg *engineConfig) {
		cfg.iterationCap = n
	}
}

// WithEmitter sets the observability event receiver. Nil is allowed and
// falls back to a no-op emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) {
		cfg.emitter = e
	}
}

// WithMetrics enables Prometheus metrics collection for runs executed by
// this engine.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine := graph.New(resolver, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *engineConfig) {
		cfg.metrics = m
	}
}

// RunOption adjusts a single Execute call.
type RunOption func(*runConfig)

type runConfig struct {
	runID        string
	iterationCap int
}

// WithRunID fixes the run's identifier instead of generating one. Used by
// callers that allocate the id up front (e.g. to persist a running record).
func WithRunID(id string) RunOption {
	return func(cfg *runConfig) {
		cfg.runID = id
	}
}

// WithRunIterationCap overrides the engine's iteration cap for one run.
// Values <= 0 are ignored.
func WithRunIterationCap(n int) RunOption {
	return func(cfg *runConfig) {
		cfg.iterationCap = n
	}
}
