package graph

import "context"

// Capability is an external, named unit of computation bound to a node.
//
// It receives a deep copy of the current run state and returns a
// partial-update mapping that the engine merges back into the state, or an
// error which terminates the run as failed. Capabilities should:
//   - Respect context cancellation on long-running or I/O-bound work
//   - Treat the input state as read-only (mutations are discarded)
//   - Return only the keys they intend to add or overwrite
//
// Example:
//
//	addTen := func(ctx context.Context, s graph.State) (graph.State, error) {
//	    x, _ := s.Get("x", float64(0)).(float64)
//	    return graph.State{"x": x + 10}, nil
//	}
type Capability func(ctx context.Context, state State) (State, error)

// Resolver maps capability names to implementations. It is consumed by
// Compile (to confirm every referenced name resolves) and by the Engine (to
// look up node bodies during execution). Resolvers are injected explicitly;
// the engine holds no global registry.
type Resolver interface {
	// Resolve returns the capability registered under name, and whether it
	// exists.
	Resolve(name string) (Capability, bool)
}
