// Package store provides persistence for graph definitions and run records.
//
// The engine itself never touches storage; the API layer persists a graph's
// definition when it is created and the run record when execution finishes.
// Stores are opaque key-value collections of JSON records, so every backend
// (memory, SQLite, MySQL, Redis) holds the same serialized shape and records
// round-trip identically between them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/graphrun/graphrun/graph"
)

// ErrNotFound is returned when a requested graph or run id does not exist.
var ErrNotFound = errors.New("not found")

// GraphRecord is the persisted form of a created graph. The Definition is
// stored verbatim and recompiled on load, since a compiled Graph holds
// parsed condition programs that do not serialize.
type GraphRecord struct {
	ID          string           `json:"graph_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Definition  graph.Definition `json:"definition"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Store persists graph definitions and run records.
//
// Put operations overwrite on id collision. List operations return records
// ordered by creation/start time so callers see stable output regardless of
// backend. Implementations must be safe for concurrent use.
type Store interface {
	PutGraph(ctx context.Context, rec GraphRecord) error

	// GetGraph returns ErrNotFound when the id does not exist.
	GetGraph(ctx context.Context, id string) (GraphRecord, error)

	ListGraphs(ctx context.Context) ([]GraphRecord, error)

	PutRun(ctx context.Context, run *graph.Run) error

	// GetRun returns ErrNotFound when the id does not exist.
	GetRun(ctx context.Context, id string) (*graph.Run, error)

	// ListRuns returns runs for one graph, or every run when graphID is
	// empty.
	ListRuns(ctx context.Context, graphID string) ([]*graph.Run, error)

	Close() error
}
