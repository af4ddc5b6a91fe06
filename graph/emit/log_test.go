package emit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterText(t *testing.T) {
	var buf strings.Builder
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		RunID:     "run-001",
		Iteration: 2,
		Node:      "analyze",
		Msg:       "node_completed",
		Meta:      map[string]any{"duration_ms": int64(12)},
	})

	got := buf.String()
	for _, want := range []string{"[node_completed]", "run=run-001", "iteration=2", "node=analyze", `"duration_ms":12`} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("output should end with newline")
	}
}

func TestLogEmitterTextOmitsEmptyFields(t *testing.T) {
	var buf strings.Builder
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{RunID: "run-001", Msg: "run_start"})

	got := buf.String()
	if strings.Contains(got, "node=") {
		t.Errorf("output %q should not include an empty node field", got)
	}
	if strings.Contains(got, "meta=") {
		t.Errorf("output %q should not include an empty meta field", got)
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf strings.Builder
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		RunID:     "run-002",
		Iteration: 1,
		Node:      "check",
		Msg:       "node_failed",
		Meta:      map[string]any{"error": "boom"},
	})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, line)
	}
	if decoded["run_id"] != "run-002" {
		t.Errorf("run_id = %v, want run-002", decoded["run_id"])
	}
	if decoded["msg"] != "node_failed" {
		t.Errorf("msg = %v, want node_failed", decoded["msg"])
	}
	meta, _ := decoded["meta"].(map[string]any)
	if meta["error"] != "boom" {
		t.Errorf("meta.error = %v, want boom", meta["error"])
	}
}

func TestNullEmitter(t *testing.T) {
	var e Emitter = NullEmitter{}
	e.Emit(Event{RunID: "run-003", Msg: "run_start"})
}
