package graph

import "time"

// Status is the lifecycle state of a run.
//
// A run starts Running and ends in exactly one of four terminal statuses.
// Failed and IterationLimitExceeded are distinct from Completed and DeadEnd
// so callers can tell "genuinely errored" and "ran out of budget" apart from
// "finished".
type Status string

const (
	// StatusRunning is the initial, non-terminal status.
	StatusRunning Status = "running"

	// StatusCompleted means execution reached a node in the end-node set.
	StatusCompleted Status = "completed"

	// StatusDeadEnd means a non-end node had no matching outgoing edge.
	// This is a normal termination, not an error.
	StatusDeadEnd Status = "dead_end"

	// StatusFailed means a node's capability returned an error (or the
	// run's context was cancelled). History up to the failure is preserved.
	StatusFailed Status = "failed"

	// StatusIterationLimit means the run consumed its iteration cap without
	// reaching a terminal node - the run's own non-convergence, not an
	// engine or node defect.
	StatusIterationLimit Status = "iteration_limit_exceeded"
)

// Terminal reports whether the status is one of the four end states.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDeadEnd, StatusFailed, StatusIterationLimit:
		return true
	}
	return false
}

// Run records a single execution of a graph. It is created by the engine at
// run start, mutated only by the owning Execute call, and immutable once its
// status is terminal.
type Run struct {
	// ID uniquely identifies this run.
	ID string `json:"run_id"`

	// GraphID references the graph that was executed.
	GraphID string `json:"graph_id"`

	// Status is the run's terminal outcome (or StatusRunning while the
	// engine still owns it).
	Status Status `json:"status"`

	// FinalState is the state at termination.
	FinalState State `json:"final_state,omitempty"`

	// History is the append-only sequence of snapshots: one initial entry
	// plus one entry per executed node.
	History []Snapshot `json:"execution_log"`

	// Error describes the capability failure for StatusFailed runs.
	Error string `json:"error,omitempty"`

	// Iterations is the number of loop iterations consumed, counted against
	// the iteration cap. Arriving at an end node consumes one iteration
	// without executing the node, so this can exceed the number of history
	// entries by one.
	Iterations int `json:"iterations"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}
