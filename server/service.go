// Package server exposes graph management and execution over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphrun/graphrun/graph"
	"github.com/graphrun/graphrun/graph/capability"
	"github.com/graphrun/graphrun/graph/store"
)

// Service ties the engine, capability registry and store together behind the
// operations the HTTP layer exposes. It holds no state of its own, so one
// instance serves concurrent requests.
type Service struct {
	store    store.Store
	registry *capability.Registry
	engine   *graph.Engine
	logger   *slog.Logger
}

// NewService assembles a service. The registry must be the same one the
// engine resolves capabilities from, otherwise graphs validate against one
// set of names and execute against another.
func NewService(st store.Store, registry *capability.Registry, engine *graph.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, registry: registry, engine: engine, logger: logger}
}

// CreateGraph validates and compiles a definition, persists it, and returns
// the stored record. Validation failures surface as *graph.ValidationError.
func (s *Service) CreateGraph(ctx context.Context, def graph.Definition) (store.GraphRecord, error) {
	g, err := graph.Compile(def, s.registry)
	if err != nil {
		return store.GraphRecord{}, err
	}

	rec := store.GraphRecord{
		ID:          g.ID(),
		Name:        def.Name,
		Description: def.Description,
		Definition:  g.Definition(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.PutGraph(ctx, rec); err != nil {
		return store.GraphRecord{}, fmt.Errorf("persisting graph: %w", err)
	}

	s.logger.Info("graph created",
		"graph_id", rec.ID,
		"name", rec.Name,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
	return rec, nil
}

// RunGraph loads a stored graph, executes it with the given initial state
// and persists the terminal run record. iterationCap <= 0 uses the engine
// default. Returns store.ErrNotFound for an unknown graph id.
func (s *Service) RunGraph(ctx context.Context, graphID string, initial graph.State, iterationCap int) (*graph.Run, error) {
	rec, err := s.store.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}

	// Recompile the stored definition; conditions were validated at create
	// time so this only fails if the registry changed underneath us.
	g, err := graph.Compile(rec.Definition, s.registry, graph.WithGraphID(rec.ID))
	if err != nil {
		return nil, fmt.Errorf("recompiling graph %s: %w", rec.ID, err)
	}

	var opts []graph.RunOption
	if iterationCap > 0 {
		opts = append(opts, graph.WithRunIterationCap(iterationCap))
	}
	run, err := s.engine.Execute(ctx, g, initial, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.store.PutRun(ctx, run); err != nil {
		return nil, fmt.Errorf("persisting run: %w", err)
	}

	s.logger.Info("graph executed",
		"graph_id", graphID,
		"run_id", run.ID,
		"status", string(run.Status),
		"iterations", run.Iterations)
	return run, nil
}

// GetRun returns a stored run record, or store.ErrNotFound.
func (s *Service) GetRun(ctx context.Context, runID string) (*graph.Run, error) {
	return s.store.GetRun(ctx, runID)
}

// ListGraphs returns all stored graph records.
func (s *Service) ListGraphs(ctx context.Context) ([]store.GraphRecord, error) {
	return s.store.ListGraphs(ctx)
}

// ListRuns returns runs for one graph, or all runs when graphID is empty.
func (s *Service) ListRuns(ctx context.Context, graphID string) ([]*graph.Run, error) {
	return s.store.ListRuns(ctx, graphID)
}

// Capabilities returns the registered capability names, sorted.
func (s *Service) Capabilities() []string {
	return s.registry.Names()
}
