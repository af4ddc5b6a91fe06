package graph

import (
	"github.com/google/uuid"

	"github.com/graphrun/graphrun/graph/condition"
)

// Node is a validated node in a compiled graph. Immutable.
type Node struct {
	Name        string
	Capability  string
	Description string
}

// edge is a validated outgoing edge. Conditional edges carry their
// pre-compiled condition program; direct edges have cond == nil.
type edge struct {
	to   string
	kind EdgeKind
	expr string
	cond *condition.Program
}

// Graph is a validated, immutable description of nodes, edges, start node
// and end-node set. Compile is the only way to construct one, so a Graph in
// hand is always runnable. Because it is never mutated after construction,
// concurrent runs may share a single Graph by reference without locking.
type Graph struct {
	id       string
	def      Definition
	nodes    map[string]Node
	edges    map[string][]edge // keyed by source, declaration order preserved
	start    string
	endNodes map[string]struct{}
}

// CompileOption adjusts graph compilation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	id string
}

// WithGraphID fixes the compiled graph's id instead of generating a new one.
// Used when re-compiling a persisted definition so runs reference the stored
// graph id.
func WithGraphID(id string) CompileOption {
	return func(cfg *compileConfig) {
		cfg.id = id
	}
}

// Compile validates a definition and constructs an immutable Graph.
//
// Validation is performed once here and never re-checked per run:
//   - node names are non-empty and unique
//   - every edge's source and target name an existing node
//   - the start node and every end node name an existing node
//   - every node's capability resolves against the resolver
//   - every conditional edge's expression parses under the condition grammar
//   - direct edges carry no expression, conditional edges carry one
//
// Any violation returns a *ValidationError and no Graph is constructed.
func Compile(def Definition, resolver Resolver, opts ...CompileOption) (*Graph, error) {
	cfg := compileConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	if resolver == nil {
		return nil, validationErrorf("capability resolver is required")
	}
	if len(def.Nodes) == 0 {
		return nil, validationErrorf("graph has no nodes")
	}

	nodes := make(map[string]Node, len(def.Nodes))
	for _, nd := range def.Nodes {
		if nd.Name == "" {
			return nil, validationErrorf("node name cannot be empty")
		}
		if _, exists := nodes[nd.Name]; exists {
			return nil, validationErrorf("duplicate node name %q", nd.Name)
		}
		if nd.Capability == "" {
			return nil, validationErrorf("node %q has no capability", nd.Name)
		}
		if _, ok := resolver.Resolve(nd.Capability); !ok {
			return nil, validationErrorf("node %q references unknown capability %q", nd.Name, nd.Capability)
		}
		nodes[nd.Name] = Node{
			Name:        nd.Name,
			Capability:  nd.Capability,
			Description: nd.Description,
		}
	}

	edges := make(map[string][]edge)
	normalized := make([]EdgeDef, 0, len(def.Edges))
	for i, ed := range def.Edges {
		if _, ok := nodes[ed.From]; !ok {
			return nil, validationErrorf("edge %d references unknown source node %q", i, ed.From)
		}
		if _, ok := nodes[ed.To]; !ok {
			return nil, validationErrorf("edge %d references unknown target node %q", i, ed.To)
		}

		kind := ed.Kind
		if kind == "" {
			if ed.Condition != "" {
				kind = EdgeConditional
			} else {
				kind = EdgeDirect
			}
		}

		e := edge{to: ed.To, kind: kind, expr: ed.Condition}
		switch kind {
		case EdgeDirect:
			if ed.Condition != "" {
				return nil, validationErrorf("direct edge %s -> %s carries a condition", ed.From, ed.To)
			}
		case EdgeConditional:
			if ed.Condition == "" {
				return nil, validationErrorf("conditional edge %s -> %s has no condition", ed.From, ed.To)
			}
			prog, err := condition.Compile(ed.Condition)
			if err != nil {
				return nil, validationErrorf("edge %s -> %s: %v", ed.From, ed.To, err)
			}
			e.cond = prog
		default:
			return nil, validationErrorf("edge %s -> %s has unknown kind %q", ed.From, ed.To, kind)
		}

		edges[ed.From] = append(edges[ed.From], e)
		ed.Kind = kind
		normalized = append(normalized, ed)
	}

	if def.StartNode == "" {
		return nil, validationErrorf("start node is required")
	}
	if _, ok := nodes[def.StartNode]; !ok {
		return nil, validationErrorf("start node %q does not exist", def.StartNode)
	}

	endNodes := make(map[string]struct{}, len(def.EndNodes))
	for _, name := range def.EndNodes {
		if _, ok := nodes[name]; !ok {
			return nil, validationErrorf("end node %q does not exist", name)
		}
		endNodes[name] = struct{}{}
	}

	def.Edges = normalized
	return &Graph{
		id:       cfg.id,
		def:      def,
		nodes:    nodes,
		edges:    edges,
		start:    def.StartNode,
		endNodes: endNodes,
	}, nil
}

// ID returns the graph's unique identifier.
func (g *Graph) ID() string { return g.id }

// Name returns the graph's display name.
func (g *Graph) Name() string { return g.def.Name }

// Description returns the graph's description.
func (g *Graph) Description() string { return g.def.Description }

// StartNode returns the name of the entry node.
func (g *Graph) StartNode() string { return g.start }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.def.Edges) }

// IsEnd reports whether name belongs to the graph's end-node set.
func (g *Graph) IsEnd(name string) bool {
	_, ok := g.endNodes[name]
	return ok
}

// NodeNamed returns the node with the given name.
func (g *Graph) NodeNamed(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Definition returns a copy of the normalized definition this graph was
// compiled from, suitable for persistence and later re-compilation.
func (g *Graph) Definition() Definition {
	def := g.def
	def.Nodes = append([]NodeDef(nil), g.def.Nodes...)
	def.Edges = append([]EdgeDef(nil), g.def.Edges...)
	def.EndNodes = append([]string(nil), g.def.EndNodes...)
	return def
}
