package capability

import (
	"context"
	"strings"
	"testing"

	"github.com/graphrun/graphrun/graph"
)

const sampleCode = `package sample

func Add(a, b int) int {
	return a + b
}

func busy_loop(items []int) int {
	total := 0
	for _, v := range items {
		if v > 0 {
			total += v
		}
		if v < 0 && total > 10 {
			total--
		}
		switch v {
		case 1:
			total++
		case 2:
			total += 2
		}
	}
	return total
}
`

func TestExtractFunctions(t *testing.T) {
	out, err := ExtractFunctions(context.Background(), graph.State{"code": sampleCode})
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	if got := out["function_count"]; got != float64(2) {
		t.Fatalf("function_count = %v, want 2", got)
	}
	functions := out["functions"].([]any)
	first := functions[0].(map[string]any)
	if first["name"] != "Add" {
		t.Errorf("first function = %v, want Add", first["name"])
	}
	second := functions[1].(map[string]any)
	if second["name"] != "busy_loop" {
		t.Errorf("second function = %v, want busy_loop", second["name"])
	}
	if !strings.Contains(second["code"].(string), "switch v {") {
		t.Error("function body should include its statements")
	}
}

func TestExtractFunctionsEmptyCode(t *testing.T) {
	out, err := ExtractFunctions(context.Background(), graph.State{})
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}
	if got := out["function_count"]; got != float64(0) {
		t.Errorf("function_count = %v, want 0", got)
	}
}

func TestFunctionName(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"func Add(a, b int) int {", "Add"},
		{"func (s *Server) handle(w http.ResponseWriter) {", "handle"},
		{"func init() {", "init"},
		{"func variadic(args ...int) {", "variadic"},
	}
	for _, tc := range cases {
		if got := functionName(tc.line); got != tc.want {
			t.Errorf("functionName(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestCheckComplexity(t *testing.T) {
	ctx := context.Background()
	extracted, err := ExtractFunctions(ctx, graph.State{"code": sampleCode})
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	out, err := CheckComplexity(ctx, graph.State{"functions": extracted["functions"]})
	if err != nil {
		t.Fatalf("CheckComplexity failed: %v", err)
	}

	scores := out["complexity_scores"].([]any)
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2", len(scores))
	}

	add := scores[0].(map[string]any)
	if add["is_complex"] != false {
		t.Errorf("Add flagged complex: %v", add)
	}
	loop := scores[1].(map[string]any)
	if loop["is_complex"] != true {
		t.Errorf("busy_loop not flagged complex: %v", loop)
	}
	if got := out["high_complexity_count"]; got != float64(1) {
		t.Errorf("high_complexity_count = %v, want 1", got)
	}
}

func TestCheckComplexityNoFunctions(t *testing.T) {
	out, err := CheckComplexity(context.Background(), graph.State{})
	if err != nil {
		t.Fatalf("CheckComplexity failed: %v", err)
	}
	if got := out["average_complexity"]; got != float64(0) {
		t.Errorf("average_complexity = %v, want 0", got)
	}
}

func TestDetectIssues(t *testing.T) {
	code := "package p\n\nimport \"unsafe\"\n\nfunc do_thing(p unsafe.Pointer) {\n\tpanic(\"no\")\n}\n"
	ctx := context.Background()
	extracted, err := ExtractFunctions(ctx, graph.State{"code": code})
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	out, err := DetectIssues(ctx, graph.State{"code": code, "functions": extracted["functions"]})
	if err != nil {
		t.Fatalf("DetectIssues failed: %v", err)
	}

	issues := out["issues"].([]any)
	types := map[string]bool{}
	for _, raw := range issues {
		types[raw.(map[string]any)["type"].(string)] = true
	}
	for _, want := range []string{"error_handling", "security", "naming"} {
		if !types[want] {
			t.Errorf("issues missing type %q: %v", want, issues)
		}
	}
	if got := out["high_severity_count"]; got != float64(1) {
		t.Errorf("high_severity_count = %v, want 1", got)
	}
}

func TestDetectIssuesCleanCode(t *testing.T) {
	code := "package p\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	out, err := DetectIssues(context.Background(), graph.State{"code": code})
	if err != nil {
		t.Fatalf("DetectIssues failed: %v", err)
	}
	if got := out["issue_count"]; got != float64(0) {
		t.Errorf("issue_count = %v, want 0: %v", got, out["issues"])
	}
}

func TestSuggestImprovements(t *testing.T) {
	state := graph.State{
		"issues": []any{
			map[string]any{"type": "security", "severity": "high", "message": "m"},
			map[string]any{"type": "style", "severity": "low", "message": "m"},
			map[string]any{"type": "style", "severity": "low", "message": "m"},
		},
		"complexity_scores": []any{
			map[string]any{"function": "busy_loop", "complexity": float64(8), "is_complex": true},
		},
		"issue_count":           float64(3),
		"high_complexity_count": float64(1),
	}

	out, err := SuggestImprovements(context.Background(), state)
	if err != nil {
		t.Fatalf("SuggestImprovements failed: %v", err)
	}

	// 100 - 3*10 - 1*15
	if got := out["quality_score"]; got != float64(55) {
		t.Errorf("quality_score = %v, want 55", got)
	}

	suggestions := out["suggestions"].([]any)
	styleCount := 0
	for _, raw := range suggestions {
		if strings.Contains(raw.(string), "long lines") {
			styleCount++
		}
	}
	if styleCount != 1 {
		t.Errorf("duplicate style suggestions not collapsed: %v", suggestions)
	}
}

func TestSuggestImprovementsFloorsAtZero(t *testing.T) {
	out, err := SuggestImprovements(context.Background(), graph.State{
		"issue_count":           float64(20),
		"high_complexity_count": float64(5),
	})
	if err != nil {
		t.Fatalf("SuggestImprovements failed: %v", err)
	}
	if got := out["quality_score"]; got != float64(0) {
		t.Errorf("quality_score = %v, want 0", got)
	}
}

func TestIncrementIteration(t *testing.T) {
	ctx := context.Background()

	out, err := IncrementIteration(ctx, graph.State{})
	if err != nil {
		t.Fatalf("IncrementIteration failed: %v", err)
	}
	if got := out["iteration"]; got != float64(1) {
		t.Errorf("iteration = %v, want 1", got)
	}

	out, err = IncrementIteration(ctx, graph.State{"iteration": float64(4)})
	if err != nil {
		t.Fatalf("IncrementIteration failed: %v", err)
	}
	if got := out["iteration"]; got != float64(5) {
		t.Errorf("iteration = %v, want 5", got)
	}
}

func TestPassThrough(t *testing.T) {
	out, err := PassThrough(context.Background(), graph.State{"x": float64(1)})
	if err != nil {
		t.Fatalf("PassThrough failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("PassThrough returned updates: %v", out)
	}
}

func TestLogState(t *testing.T) {
	var buf strings.Builder
	fn := LogState(&buf)

	out, err := fn(context.Background(), graph.State{"x": float64(1)})
	if err != nil {
		t.Fatalf("LogState failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("LogState returned updates: %v", out)
	}
	if !strings.Contains(buf.String(), `"x":1`) {
		t.Errorf("log output %q missing state", buf.String())
	}
}
