package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/graphrun/graphrun/graph"
)

// MemoryStore is an in-memory Store for development and testing. Records are
// held as serialized JSON so readers always get an isolated copy and the
// stored shape matches what the database backends persist.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string][]byte
	runs   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graphs: make(map[string][]byte),
		runs:   make(map[string][]byte),
	}
}

// PutGraph stores or overwrites a graph record.
func (m *MemoryStore) PutGraph(_ context.Context, rec GraphRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("graph record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding graph record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	m.graphs[rec.ID] = data
	return nil
}

// GetGraph retrieves a graph record by id.
func (m *MemoryStore) GetGraph(_ context.Context, id string) (GraphRecord, error) {
	m.mu.RLock()
	data, ok := m.graphs[id]
	m.mu.RUnlock()
	if !ok {
		return GraphRecord{}, ErrNotFound
	}

	var rec GraphRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return GraphRecord{}, fmt.Errorf("decoding graph record: %w", err)
	}
	return rec, nil
}

// ListGraphs returns all graph records ordered by creation time.
func (m *MemoryStore) ListGraphs(_ context.Context) ([]GraphRecord, error) {
	m.mu.RLock()
	raw := make([][]byte, 0, len(m.graphs))
	for _, data := range m.graphs {
		raw = append(raw, data)
	}
	m.mu.RUnlock()

	recs := make([]GraphRecord, 0, len(raw))
	for _, data := range raw {
		var rec GraphRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding graph record: %w", err)
		}
		recs = append(recs, rec)
	}
	sortGraphRecords(recs)
	return recs, nil
}

// PutRun stores or overwrites a run record.
func (m *MemoryStore) PutRun(_ context.Context, run *graph.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	m.runs[run.ID] = data
	return nil
}

// GetRun retrieves a run record by id.
func (m *MemoryStore) GetRun(_ context.Context, id string) (*graph.Run, error) {
	m.mu.RLock()
	data, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var run graph.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decoding run record: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs for one graph (or all when graphID is empty) ordered
// by start time.
func (m *MemoryStore) ListRuns(_ context.Context, graphID string) ([]*graph.Run, error) {
	m.mu.RLock()
	raw := make([][]byte, 0, len(m.runs))
	for _, data := range m.runs {
		raw = append(raw, data)
	}
	m.mu.RUnlock()

	runs := make([]*graph.Run, 0, len(raw))
	for _, data := range raw {
		var run graph.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("decoding run record: %w", err)
		}
		if graphID != "" && run.GraphID != graphID {
			continue
		}
		runs = append(runs, &run)
	}
	sortRuns(runs)
	return runs, nil
}

// Close marks the store closed. Further writes fail; reads keep working so
// in-flight requests can drain.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func sortGraphRecords(recs []GraphRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

func sortRuns(runs []*graph.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
