package graph

import (
	"testing"
)

func TestStateGetSet(t *testing.T) {
	s := State{"x": float64(1)}

	if got := s.Get("x", nil); got != float64(1) {
		t.Errorf("Get(x) = %v, want 1", got)
	}
	if got := s.Get("missing", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %v, want fallback", got)
	}

	s.Set("x", float64(2))
	s.Set("y", "hello")
	if got := s.Get("x", nil); got != float64(2) {
		t.Errorf("Get(x) after Set = %v, want 2", got)
	}
	if got := s.Get("y", nil); got != "hello" {
		t.Errorf("Get(y) = %v, want hello", got)
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	s := State{
		"list":   []any{float64(1), float64(2)},
		"nested": map[string]any{"inner": "value"},
	}

	copied, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	copied["nested"].(map[string]any)["inner"] = "mutated"
	copied["list"].([]any)[0] = float64(99)

	if s["nested"].(map[string]any)["inner"] != "value" {
		t.Error("mutating clone's nested map changed the original")
	}
	if s["list"].([]any)[0] != float64(1) {
		t.Error("mutating clone's list changed the original")
	}
}

func TestStateCloneNil(t *testing.T) {
	var s State
	copied, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if copied == nil {
		t.Fatal("Clone(nil) should return a usable empty state")
	}
	copied.Set("x", float64(1))
}

func TestStateCloneRejectsUnserializable(t *testing.T) {
	s := State{"fn": func() {}}
	if _, err := s.Clone(); err == nil {
		t.Error("Clone should fail on non-JSON values")
	}
}

func TestStateLogRecordsInitialSnapshot(t *testing.T) {
	log, err := newStateLog(State{"x": float64(0)})
	if err != nil {
		t.Fatalf("newStateLog failed: %v", err)
	}

	if len(log.history) != 1 {
		t.Fatalf("history length = %d, want 1", len(log.history))
	}
	first := log.history[0]
	if first.Node != "" {
		t.Errorf("initial snapshot node = %q, want empty", first.Node)
	}
	if first.State["x"] != float64(0) {
		t.Errorf("initial snapshot state = %v", first.State)
	}
}

func TestStateLogMerge(t *testing.T) {
	log, err := newStateLog(State{"x": float64(0), "keep": "yes"})
	if err != nil {
		t.Fatalf("newStateLog failed: %v", err)
	}

	if err := log.merge("A", State{"x": float64(10)}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := log.merge("B", State{"x": float64(20), "y": "new"}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	if got := log.current()["x"]; got != float64(20) {
		t.Errorf("current x = %v, want 20", got)
	}
	if got := log.current()["keep"]; got != "yes" {
		t.Errorf("untouched key lost: %v", got)
	}

	if len(log.history) != 3 {
		t.Fatalf("history length = %d, want 3", len(log.history))
	}
	if log.history[1].Node != "A" || log.history[1].State["x"] != float64(10) {
		t.Errorf("snapshot after A = %+v", log.history[1])
	}
	if log.history[2].Node != "B" || log.history[2].State["y"] != "new" {
		t.Errorf("snapshot after B = %+v", log.history[2])
	}
}

func TestStateLogSnapshotsAreIsolated(t *testing.T) {
	log, err := newStateLog(State{"x": float64(0)})
	if err != nil {
		t.Fatalf("newStateLog failed: %v", err)
	}
	if err := log.merge("A", State{"x": float64(1)}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := log.merge("A", State{"x": float64(2)}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	// Each history entry holds the state as of its own merge.
	if log.history[1].State["x"] != float64(1) {
		t.Errorf("earlier snapshot mutated by later merge: %v", log.history[1].State)
	}
}

func TestStateLogRecordFailure(t *testing.T) {
	log, err := newStateLog(State{"x": float64(5)})
	if err != nil {
		t.Fatalf("newStateLog failed: %v", err)
	}

	log.recordFailure("BAD", "capability exploded")

	if len(log.history) != 2 {
		t.Fatalf("history length = %d, want 2", len(log.history))
	}
	entry := log.history[1]
	if entry.Node != "BAD" || entry.Error != "capability exploded" {
		t.Errorf("failure entry = %+v", entry)
	}
	if entry.State["x"] != float64(5) {
		t.Errorf("failure snapshot should preserve pre-failure state: %v", entry.State)
	}
}
