// Package graph provides the core directed-graph execution engine for graphrun.
package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the mutable key/value data a run operates on.
//
// Values are restricted to the JSON value model: string, float64, bool,
// []any, and map[string]any, arbitrarily nested. A State is owned by exactly
// one run and is never shared across runs. Keys are only added or
// overwritten, never removed - values flow forward through the run.
type State map[string]any

// Get returns the value stored under key, or def if the key is absent.
// Missing keys are never an error.
func (s State) Get(key string, def any) any {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// Set stores value under key, overwriting any previous value.
func (s State) Set(key string, value any) {
	s[key] = value
}

// Clone creates a deep copy of the state using JSON round-trip serialization.
//
// This works for any value in the JSON value model. It fails only when a
// capability has placed a non-serializable value (channel, function, cycle)
// into the state.
func (s State) Clone() (State, error) {
	if s == nil {
		return State{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var copied State
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if copied == nil {
		copied = State{}
	}
	return copied, nil
}

// Snapshot is an immutable, deep copy of a run's state taken at a point in
// time, tagged with the node that produced it. Snapshots are owned by the
// run's history and never mutated after creation.
type Snapshot struct {
	// Node is the name of the node whose execution produced this snapshot.
	// Empty for the initial entry recorded before any node runs.
	Node string `json:"node_name,omitempty"`

	// TakenAt is the UTC timestamp at which the snapshot was recorded.
	TakenAt time.Time `json:"timestamp"`

	// State is the deep-copied state after the producing node's updates
	// were merged.
	State State `json:"state_snapshot"`

	// Error describes the node failure, if the producing node returned one.
	// The snapshot then reflects the state before the failed node's
	// (never applied) updates.
	Error string `json:"error,omitempty"`
}

// stateLog owns the live state of a single run plus the append-only history
// of snapshots. merge is the only mutation entry point used by the engine,
// so every node's effect is captured in the history exactly once.
type stateLog struct {
	data    State
	history []Snapshot
}

// newStateLog deep-copies the initial state and records it as the first
// history entry, before any node runs.
func newStateLog(initial State) (*stateLog, error) {
	data, err := initial.Clone()
	if err != nil {
		return nil, err
	}
	snap, err := data.Clone()
	if err != nil {
		return nil, err
	}
	return &stateLog{
		data:    data,
		history: []Snapshot{{TakenAt: time.Now().UTC(), State: snap}},
	}, nil
}

// merge applies every key/value in updates as an overwrite and appends a
// snapshot of the resulting state tagged with the producing node.
func (l *stateLog) merge(node string, updates State) error {
	for k, v := range updates {
		l.data[k] = v
	}
	snap, err := l.data.Clone()
	if err != nil {
		return err
	}
	l.history = append(l.history, Snapshot{
		Node:    node,
		TakenAt: time.Now().UTC(),
		State:   snap,
	})
	return nil
}

// recordFailure appends a history entry for a node whose capability returned
// an error. No updates are merged; the snapshot preserves the state as it
// was when the node was invoked.
func (l *stateLog) recordFailure(node string, errMsg string) {
	snap, err := l.data.Clone()
	if err != nil {
		// The state was cloneable on the previous merge; fall back to an
		// empty snapshot rather than losing the failure entry.
		snap = State{}
	}
	l.history = append(l.history, Snapshot{
		Node:    node,
		TakenAt: time.Now().UTC(),
		State:   snap,
		Error:   errMsg,
	})
}

// snapshot returns a deep copy of the current state.
func (l *stateLog) snapshot() (State, error) {
	return l.data.Clone()
}

// current returns the live state for read-only use (edge routing).
func (l *stateLog) current() State {
	return l.data
}
