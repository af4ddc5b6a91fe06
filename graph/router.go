package graph

// nextNode selects the successor of current given the current state.
//
// Outgoing edges are evaluated in declaration order:
//   - a direct edge always matches
//   - a conditional edge matches iff its condition evaluates true
//
// The first matching edge wins and later edges are not evaluated. This gives
// deterministic, priority-by-declaration-order semantics and is how if/else
// and loop-back-vs-exit pairs are expressed: declare the exit condition
// first, the fallback after it.
//
// A condition that fails to evaluate cleanly (undefined identifier, type
// mismatch) counts as false - the edge is not taken - and the failure is
// reported through onCondErr so callers can surface it. If no edge matches,
// ok is false; the engine treats that as a normal dead end, not an error.
func (g *Graph) nextNode(current string, state State, onCondErr func(expr string, err error)) (next string, ok bool) {
	for _, e := range g.edges[current] {
		if e.cond == nil {
			return e.to, true
		}
		match, err := e.cond.Evaluate(state)
		if err != nil && onCondErr != nil {
			onCondErr(e.expr, err)
		}
		if match {
			return e.to, true
		}
	}
	return "", false
}
