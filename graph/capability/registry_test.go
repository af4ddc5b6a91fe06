package capability

import (
	"context"
	"testing"

	"github.com/graphrun/graphrun/graph"
)

func noop(context.Context, graph.State) (graph.State, error) {
	return graph.State{}, nil
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("noop", noop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	fn, ok := r.Resolve("noop")
	if !ok {
		t.Fatal("Resolve(noop) not found")
	}
	if fn == nil {
		t.Fatal("Resolve(noop) returned nil function")
	}
	if _, ok := r.Resolve("missing"); ok {
		t.Error("Resolve(missing) should not be found")
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("", noop); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := r.Register("nil_fn", nil); err == nil {
		t.Error("nil function should be rejected")
	}
	if err := r.Register("dup", noop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("dup", noop); err == nil {
		t.Error("duplicate name should be rejected")
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(name, noop); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}
	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("gone", noop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !r.Unregister("gone") {
		t.Error("Unregister(gone) = false, want true")
	}
	if r.Unregister("gone") {
		t.Error("second Unregister(gone) = true, want false")
	}
	if _, ok := r.Resolve("gone"); ok {
		t.Error("Resolve(gone) found after unregister")
	}
}

func TestDefaultRegistersBuiltins(t *testing.T) {
	r := Default()
	for _, name := range []string{
		"extract_functions",
		"check_complexity",
		"detect_issues",
		"suggest_improvements",
		"increment_iteration",
		"pass_through",
		"log_state",
	} {
		if _, ok := r.Resolve(name); !ok {
			t.Errorf("Default() missing builtin %q", name)
		}
	}
}
