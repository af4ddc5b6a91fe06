package graph

// EdgeKind distinguishes unconditional edges from predicate-guarded ones.
type EdgeKind string

const (
	// EdgeDirect marks an edge that always matches during routing.
	EdgeDirect EdgeKind = "direct"

	// EdgeConditional marks an edge that matches only when its condition
	// expression evaluates true against the current state.
	EdgeConditional EdgeKind = "conditional"
)

// NodeDef declares a node in a graph definition.
type NodeDef struct {
	// Name uniquely identifies the node within the graph.
	Name string `json:"name"`

	// Capability names the external callable bound to this node. It must
	// resolve against the capability resolver at compile time.
	Capability string `json:"capability"`

	// Description is optional free-form documentation.
	Description string `json:"description,omitempty"`
}

// EdgeDef declares a directed connection between two nodes.
//
// Kind may be left empty: it defaults to EdgeConditional when Condition is
// set and EdgeDirect otherwise. Declaration order is significant - during
// routing the first matching edge wins.
type EdgeDef struct {
	From      string   `json:"from_node"`
	To        string   `json:"to_node"`
	Kind      EdgeKind `json:"kind,omitempty"`
	Condition string   `json:"condition,omitempty"`
}

// Definition is the wire-level description of a workflow graph, as accepted
// by Compile and by the HTTP API. It carries no compiled or validated
// structure; use Compile to turn it into a runnable Graph.
type Definition struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Nodes       []NodeDef `json:"nodes"`
	Edges       []EdgeDef `json:"edges"`
	StartNode   string    `json:"start_node"`
	EndNodes    []string  `json:"end_nodes,omitempty"`
}
