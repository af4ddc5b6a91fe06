package graph

import "fmt"

// ValidationError reports a structural problem in a graph definition found
// at compile time: an unknown node reference, an unresolvable capability, or
// a malformed condition expression. A definition that fails validation is
// never turned into a Graph.
type ValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid graph: " + e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// EngineError reports misuse of the Engine API itself (nil graph, state that
// cannot be serialized), as opposed to run-level outcomes which are reported
// through the Run's status.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
