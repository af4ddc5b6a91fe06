package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrun/graphrun/graph"
)

// testDefinition is a small valid definition used across backend tests.
func testDefinition(name string) graph.Definition {
	return graph.Definition{
		Name: name,
		Nodes: []graph.NodeDef{
			{Name: "work", Capability: "pass_through"},
			{Name: "done", Capability: "pass_through"},
		},
		Edges: []graph.EdgeDef{
			{From: "work", To: "done", Condition: "x >= 30"},
			{From: "work", To: "work"},
		},
		StartNode: "work",
		EndNodes:  []string{"done"},
	}
}

func testRun(id, graphID string, startedAt time.Time) *graph.Run {
	return &graph.Run{
		ID:         id,
		GraphID:    graphID,
		Status:     graph.StatusCompleted,
		FinalState: graph.State{"x": float64(30)},
		History: []graph.Snapshot{
			{TakenAt: startedAt, State: graph.State{"x": float64(0)}},
			{Node: "work", TakenAt: startedAt.Add(time.Millisecond), State: graph.State{"x": float64(30)}},
		},
		Iterations: 2,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Millisecond),
	}
}

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("graph round trip", func(t *testing.T) {
		rec := GraphRecord{
			ID:          "g-1",
			Name:        "loop",
			Description: "test graph",
			Definition:  testDefinition("loop"),
			CreatedAt:   base,
		}
		require.NoError(t, s.PutGraph(ctx, rec))

		got, err := s.GetGraph(ctx, "g-1")
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Name, got.Name)
		assert.Equal(t, rec.Definition.StartNode, got.Definition.StartNode)
		require.Len(t, got.Definition.Edges, 2)
		assert.Equal(t, "x >= 30", got.Definition.Edges[0].Condition)
		assert.True(t, got.CreatedAt.Equal(base))
	})

	t.Run("graph not found", func(t *testing.T) {
		_, err := s.GetGraph(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("graph overwrite", func(t *testing.T) {
		rec := GraphRecord{ID: "g-1", Name: "renamed", Definition: testDefinition("renamed"), CreatedAt: base}
		require.NoError(t, s.PutGraph(ctx, rec))

		got, err := s.GetGraph(ctx, "g-1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
	})

	t.Run("graph requires id", func(t *testing.T) {
		err := s.PutGraph(ctx, GraphRecord{Name: "anonymous"})
		assert.Error(t, err)
	})

	t.Run("list graphs ordered by creation", func(t *testing.T) {
		require.NoError(t, s.PutGraph(ctx, GraphRecord{
			ID: "g-2", Name: "second", Definition: testDefinition("second"), CreatedAt: base.Add(time.Minute),
		}))

		recs, err := s.ListGraphs(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "g-1", recs[0].ID)
		assert.Equal(t, "g-2", recs[1].ID)
	})

	t.Run("run round trip", func(t *testing.T) {
		run := testRun("r-1", "g-1", base)
		require.NoError(t, s.PutRun(ctx, run))

		got, err := s.GetRun(ctx, "r-1")
		require.NoError(t, err)
		assert.Equal(t, graph.StatusCompleted, got.Status)
		assert.Equal(t, float64(30), got.FinalState["x"])
		require.Len(t, got.History, 2)
		assert.Equal(t, "work", got.History[1].Node)
		assert.Equal(t, 2, got.Iterations)
	})

	t.Run("run not found", func(t *testing.T) {
		_, err := s.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list runs filters by graph", func(t *testing.T) {
		require.NoError(t, s.PutRun(ctx, testRun("r-2", "g-1", base.Add(time.Second))))
		require.NoError(t, s.PutRun(ctx, testRun("r-3", "g-2", base.Add(2*time.Second))))

		all, err := s.ListRuns(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "r-1", all[0].ID)
		assert.Equal(t, "r-3", all[2].ID)

		forG1, err := s.ListRuns(ctx, "g-1")
		require.NoError(t, err)
		require.Len(t, forG1, 2)
		for _, run := range forG1 {
			assert.Equal(t, "g-1", run.GraphID)
		}

		none, err := s.ListRuns(ctx, "no-such-graph")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
