package graph

import "testing"

func branchDefinition(edges []EdgeDef) Definition {
	return Definition{
		Name: "branch",
		Nodes: []NodeDef{
			{Name: "CHECK", Capability: "work"},
			{Name: "HIGH", Capability: "work"},
			{Name: "LOW", Capability: "work"},
		},
		Edges:     edges,
		StartNode: "CHECK",
	}
}

func TestRouterConditionalBranch(t *testing.T) {
	g, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "HIGH", Condition: "score > 50"},
		{From: "CHECK", To: "LOW"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	next, ok := g.nextNode("CHECK", State{"score": float64(80)}, nil)
	if !ok || next != "HIGH" {
		t.Errorf("score 80 routed to %q (%v), want HIGH", next, ok)
	}

	next, ok = g.nextNode("CHECK", State{"score": float64(10)}, nil)
	if !ok || next != "LOW" {
		t.Errorf("score 10 routed to %q (%v), want LOW", next, ok)
	}
}

func TestRouterFirstMatchWins(t *testing.T) {
	// Both conditions are true; declaration order decides.
	g, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "HIGH", Condition: "score > 10"},
		{From: "CHECK", To: "LOW", Condition: "score > 0"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	next, _ := g.nextNode("CHECK", State{"score": float64(80)}, nil)
	if next != "HIGH" {
		t.Errorf("routed to %q, want first-declared HIGH", next)
	}

	// Same edges, reversed declaration order.
	reordered, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "LOW", Condition: "score > 0"},
		{From: "CHECK", To: "HIGH", Condition: "score > 10"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	next, _ = reordered.nextNode("CHECK", State{"score": float64(80)}, nil)
	if next != "LOW" {
		t.Errorf("reordered graph routed to %q, want LOW", next)
	}
}

func TestRouterDirectEdgeShadowsLaterEdges(t *testing.T) {
	g, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "LOW"},
		{From: "CHECK", To: "HIGH", Condition: "score > 10"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	next, _ := g.nextNode("CHECK", State{"score": float64(80)}, nil)
	if next != "LOW" {
		t.Errorf("routed to %q, want the earlier direct edge LOW", next)
	}
}

func TestRouterNoMatch(t *testing.T) {
	g, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "HIGH", Condition: "score > 50"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if next, ok := g.nextNode("CHECK", State{"score": float64(10)}, nil); ok {
		t.Errorf("expected no successor, got %q", next)
	}
	if next, ok := g.nextNode("HIGH", State{}, nil); ok {
		t.Errorf("node without outgoing edges returned %q", next)
	}
}

func TestRouterEvaluationFailureIsFalse(t *testing.T) {
	// score > threshold faults when threshold is a string.
	g, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "HIGH", Condition: "score > threshold"},
		{From: "CHECK", To: "LOW"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var reported []string
	next, ok := g.nextNode("CHECK",
		State{"score": float64(80), "threshold": "not-a-number"},
		func(expr string, err error) {
			reported = append(reported, expr)
			if err == nil {
				t.Error("callback invoked without error")
			}
		})

	if !ok || next != "LOW" {
		t.Errorf("faulting condition routed to %q (%v), want fallback LOW", next, ok)
	}
	if len(reported) != 1 || reported[0] != "score > threshold" {
		t.Errorf("reported failures = %v", reported)
	}
}

func TestRouterUndefinedIdentifierIsQuietFalse(t *testing.T) {
	g, err := Compile(branchDefinition([]EdgeDef{
		{From: "CHECK", To: "HIGH", Condition: "missing > 50"},
		{From: "CHECK", To: "LOW"},
	}), testResolver2())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// Undefined identifiers are defined behavior, not evaluation faults.
	next, ok := g.nextNode("CHECK", State{}, func(expr string, err error) {
		t.Errorf("unexpected failure report for %q: %v", expr, err)
	})
	if !ok || next != "LOW" {
		t.Errorf("routed to %q (%v), want LOW", next, ok)
	}
}

func testResolver2() mapResolver {
	return mapResolver{"work": passThrough}
}
