// Package emit provides pluggable observability for graph execution.
//
// The engine emits an Event at run start, after every node execution
// (success or failure), whenever a condition is treated as false because it
// failed to evaluate, and at run termination. Events flow to an Emitter,
// which can log them, turn them into OpenTelemetry spans, or discard them.
package emit

// Event is a single observability event from a run.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Iteration is the loop iteration the event belongs to (1-indexed).
	// Zero for run-level events such as run_start.
	Iteration int

	// Node names the node involved, empty for run-level and routing events.
	Node string

	// Msg identifies the event kind: run_start, node_completed, node_failed,
	// condition_false_on_error, run_finished.
	Msg string

	// Meta carries event-specific structured data. Common keys:
	//   - "duration_ms": capability execution time
	//   - "error": failure description
	//   - "status": terminal run status
	//   - "expression": the condition that failed to evaluate
	Meta map[string]any
}
