package graph

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/graphrun/graphrun/graph/emit"
)

// Engine drives graph execution: it repeatedly invokes the current node's
// capability, merges the returned updates into the run state, records a
// history snapshot, consults edge routing, and enforces the termination
// policy (end node, dead end, capability error, iteration cap).
//
// Dependencies are injected at construction; the engine holds no global
// state. One Engine may execute many runs, concurrently, against shared
// immutable Graphs - each run owns its State and History exclusively.
//
// Example:
//
//	registry := capability.Default()
//	engine := graph.New(registry, graph.WithIterationCap(50))
//
//	g, err := graph.Compile(def, registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := engine.Execute(ctx, g, graph.State{"x": float64(0)})
//	fmt.Println(run.Status, run.FinalState)
type Engine struct {
	resolver     Resolver
	emitter      emit.Emitter
	metrics      *PrometheusMetrics
	iterationCap int
}

// New creates an Engine with the given capability resolver and options.
func New(resolver Resolver, opts ...Option) *Engine {
	cfg := engineConfig{iterationCap: DefaultIterationCap}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.iterationCap <= 0 {
		cfg.iterationCap = DefaultIterationCap
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NullEmitter{}
	}
	return &Engine{
		resolver:     resolver,
		emitter:      cfg.emitter,
		metrics:      cfg.metrics,
		iterationCap: cfg.iterationCap,
	}
}

// Execute runs the graph from its start node until a terminal condition is
// reached and returns the completed Run record.
//
// Run-level outcomes - completion, dead end, capability failure, iteration
// limit - are reported through the Run's Status and Error fields, never as a
// Go error. The returned error is non-nil only for API misuse: a nil graph,
// a nil resolver, or an initial state that cannot be serialized.
//
// Each loop iteration, in order:
//  1. Cooperative cancellation check: a done context fails the run with the
//     context's error, preserving accumulated history.
//  2. Iteration-cap check: once the cap is consumed the run terminates as
//     StatusIterationLimit; exactly cap node executions are recorded, never
//     more.
//  3. End-node check: reaching a node in the end-node set completes the run
//     without invoking that node's capability.
//  4. Capability invocation with a deep copy of the current state; an error
//     fails the run, success merges the partial update and appends a
//     snapshot.
//  5. Edge routing: first matching edge in declaration order wins; no match
//     terminates the run as StatusDeadEnd.
func (e *Engine) Execute(ctx context.Context, g *Graph, initial State, opts ...RunOption) (*Run, error) {
	if g == nil {
		return nil, &EngineError{Message: "graph is required", Code: "NIL_GRAPH"}
	}
	if e.resolver == nil {
		return nil, &EngineError{Message: "capability resolver is required", Code: "NIL_RESOLVER"}
	}

	rc := runConfig{iterationCap: e.iterationCap}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.iterationCap <= 0 {
		rc.iterationCap = e.iterationCap
	}
	if rc.runID == "" {
		rc.runID = uuid.NewString()
	}

	log, err := newStateLog(initial)
	if err != nil {
		return nil, &EngineError{Message: "initial state: " + err.Error(), Code: "BAD_STATE"}
	}

	run := &Run{
		ID:        rc.runID,
		GraphID:   g.ID(),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	if e.metrics != nil {
		e.metrics.RunStarted()
	}
	e.emitter.Emit(emit.Event{
		RunID: run.ID,
		Msg:   "run_start",
		Meta:  map[string]any{"graph_id": g.ID(), "start_node": g.StartNode()},
	})

	onCondErr := func(expr string, evalErr error) {
		if e.metrics != nil {
			e.metrics.ConditionFalseOnError(g.ID())
		}
		e.emitter.Emit(emit.Event{
			RunID:     run.ID,
			Iteration: run.Iterations,
			Msg:       "condition_false_on_error",
			Meta:      map[string]any{"expression": expr, "error": evalErr.Error()},
		})
	}

	current := g.StartNode()
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.finish(run, log, StatusFailed, ctxErr.Error()), nil
		}
		if run.Iterations >= rc.iterationCap {
			return e.finish(run, log, StatusIterationLimit, ""), nil
		}
		run.Iterations++

		if g.IsEnd(current) {
			return e.finish(run, log, StatusCompleted, ""), nil
		}

		node, ok := g.NodeNamed(current)
		if !ok {
			// Unreachable for compiled graphs; guards hand-built ones.
			return e.finish(run, log, StatusFailed, "node not found: "+current), nil
		}
		capFn, ok := e.resolver.Resolve(node.Capability)
		if !ok {
			return e.finish(run, log, StatusFailed, "capability not registered: "+node.Capability), nil
		}

		view, err := log.snapshot()
		if err != nil {
			return e.finish(run, log, StatusFailed, "state snapshot: "+err.Error()), nil
		}

		started := time.Now()
		updates, capErr := capFn(ctx, view)
		elapsed := time.Since(started)

		if capErr != nil {
			log.recordFailure(current, capErr.Error())
			if e.metrics != nil {
				e.metrics.RecordNodeLatency(current, elapsed, "error")
			}
			e.emitter.Emit(emit.Event{
				RunID:     run.ID,
				Iteration: run.Iterations,
				Node:      current,
				Msg:       "node_failed",
				Meta:      map[string]any{"error": capErr.Error()},
			})
			return e.finish(run, log, StatusFailed, "node "+current+": "+capErr.Error()), nil
		}

		if err := log.merge(current, updates); err != nil {
			return e.finish(run, log, StatusFailed, "node "+current+": merge: "+err.Error()), nil
		}
		if e.metrics != nil {
			e.metrics.RecordNodeLatency(current, elapsed, "success")
		}
		e.emitter.Emit(emit.Event{
			RunID:     run.ID,
			Iteration: run.Iterations,
			Node:      current,
			Msg:       "node_completed",
			Meta:      map[string]any{"duration_ms": elapsed.Milliseconds()},
		})

		next, ok := g.nextNode(current, log.current(), onCondErr)
		if !ok {
			return e.finish(run, log, StatusDeadEnd, ""), nil
		}
		current = next
	}
}

// finish seals the run with its terminal status, final state and history.
func (e *Engine) finish(run *Run, log *stateLog, status Status, errMsg string) *Run {
	run.Status = status
	run.Error = errMsg
	run.History = log.history
	run.FinishedAt = time.Now().UTC()
	if final, err := log.snapshot(); err == nil {
		run.FinalState = final
	}

	if e.metrics != nil {
		e.metrics.RunFinished(status, run.Iterations)
	}
	meta := map[string]any{"status": string(status), "iterations": run.Iterations}
	if errMsg != "" {
		meta["error"] = errMsg
	}
	e.emitter.Emit(emit.Event{
		RunID:     run.ID,
		Iteration: run.Iterations,
		Msg:       "run_finished",
		Meta:      meta,
	})
	return run
}
