package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/graphrun/graphrun/graph"
)

// The built-in capabilities implement a small static review pipeline over Go
// source held in state under "code". They only read and write plain JSON
// values (float64, string, bool, []any, map[string]any) so snapshots of
// their output survive serialization unchanged.

// ExtractFunctions scans state["code"] for top-level function declarations
// and writes "functions" (name, start_line, code) and "function_count".
func ExtractFunctions(_ context.Context, state graph.State) (graph.State, error) {
	code, _ := state.Get("code", "").(string)

	var functions []any
	var current map[string]any

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "func ") {
			if current != nil {
				functions = append(functions, current)
			}
			current = map[string]any{
				"name":       functionName(trimmed),
				"start_line": float64(i + 1),
				"code":       line + "\n",
			}
			continue
		}
		if current != nil {
			current["code"] = current["code"].(string) + line + "\n"
		}
	}
	if current != nil {
		functions = append(functions, current)
	}

	return graph.State{
		"functions":      functions,
		"function_count": float64(len(functions)),
	}, nil
}

// functionName extracts the declared name from a "func ..." line. Method
// declarations skip past the receiver.
func functionName(line string) string {
	rest := strings.TrimPrefix(line, "func ")
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")"); end >= 0 {
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	if open := strings.IndexAny(rest, "([ "); open >= 0 {
		rest = rest[:open]
	}
	return rest
}

// CheckComplexity scores each extracted function by counting branching
// constructs and writes "complexity_scores", "average_complexity" and
// "high_complexity_count". A score above 5 marks the function complex.
func CheckComplexity(_ context.Context, state graph.State) (graph.State, error) {
	functions, _ := state.Get("functions", nil).([]any)

	var scores []any
	total := 0.0
	highCount := 0.0
	for _, raw := range functions {
		fn, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		code, _ := fn["code"].(string)

		complexity := 1.0
		for _, marker := range []string{"if ", "for ", "switch ", "case ", "&& ", "|| "} {
			complexity += float64(strings.Count(code, marker))
		}

		isComplex := complexity > 5
		if isComplex {
			highCount++
		}
		total += complexity
		scores = append(scores, map[string]any{
			"function":   fn["name"],
			"complexity": complexity,
			"is_complex": isComplex,
		})
	}

	average := 0.0
	if len(scores) > 0 {
		average = total / float64(len(scores))
	}

	return graph.State{
		"complexity_scores":     scores,
		"average_complexity":    average,
		"high_complexity_count": highCount,
	}, nil
}

// DetectIssues runs basic static checks over state["code"] and the extracted
// functions, writing "issues", "issue_count" and "high_severity_count".
func DetectIssues(_ context.Context, state graph.State) (graph.State, error) {
	code, _ := state.Get("code", "").(string)
	functions, _ := state.Get("functions", nil).([]any)

	var issues []any

	if strings.Contains(code, "panic(") {
		issues = append(issues, issue("error_handling", "medium",
			"panic used for error handling, return an error instead"))
	}
	if strings.Contains(code, "unsafe.") {
		issues = append(issues, issue("security", "high",
			"use of package unsafe bypasses type safety"))
	}
	for _, raw := range functions {
		fn, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		if strings.Contains(name, "_") {
			issues = append(issues, issue("naming", "low",
				fmt.Sprintf("function %q should use MixedCaps, not underscores", name)))
		}
	}
	longLines := 0
	for _, line := range strings.Split(code, "\n") {
		if len(line) > 100 {
			longLines++
		}
	}
	if longLines > 0 {
		issues = append(issues, issue("style", "low",
			fmt.Sprintf("%d lines exceed 100 characters", longLines)))
	}

	highCount := 0.0
	for _, raw := range issues {
		if m, ok := raw.(map[string]any); ok && m["severity"] == "high" {
			highCount++
		}
	}

	return graph.State{
		"issues":              issues,
		"issue_count":         float64(len(issues)),
		"high_severity_count": highCount,
	}, nil
}

func issue(kind, severity, message string) map[string]any {
	return map[string]any{"type": kind, "severity": severity, "message": message}
}

// SuggestImprovements derives suggestions from the detected issues and
// complexity scores, and writes "suggestions" plus an overall
// "quality_score" (100 minus 10 per issue minus 15 per complex function,
// floored at 0).
func SuggestImprovements(_ context.Context, state graph.State) (graph.State, error) {
	issues, _ := state.Get("issues", nil).([]any)
	scores, _ := state.Get("complexity_scores", nil).([]any)

	seen := map[string]bool{}
	var suggestions []any
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			suggestions = append(suggestions, s)
		}
	}

	for _, raw := range issues {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch m["type"] {
		case "error_handling":
			add("Replace panic with an error return on the failure path")
		case "security":
			add("Remove the unsafe package usage or isolate it behind a reviewed boundary")
		case "naming":
			add("Rename functions to MixedCaps per Go conventions")
		case "style":
			add("Break long lines into multiple lines")
		}
	}
	for _, raw := range scores {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if flagged, _ := m["is_complex"].(bool); flagged {
			add(fmt.Sprintf("Refactor function %q to reduce complexity", m["function"]))
		}
	}

	issueCount, _ := state.Get("issue_count", float64(0)).(float64)
	highComplexity, _ := state.Get("high_complexity_count", float64(0)).(float64)
	quality := 100 - issueCount*10 - highComplexity*15
	if quality < 0 {
		quality = 0
	}

	return graph.State{
		"suggestions":   suggestions,
		"quality_score": quality,
	}, nil
}

// IncrementIteration bumps the "iteration" counter, starting it at 0 when
// absent. Useful as the body of loop nodes.
func IncrementIteration(_ context.Context, state graph.State) (graph.State, error) {
	current, _ := state.Get("iteration", float64(0)).(float64)
	return graph.State{"iteration": current + 1}, nil
}

// PassThrough returns no updates.
func PassThrough(context.Context, graph.State) (graph.State, error) {
	return graph.State{}, nil
}

// LogState returns a capability that dumps the current state to w (os.Stderr
// when nil) and returns no updates. Debugging aid.
func LogState(w io.Writer) graph.Capability {
	if w == nil {
		w = os.Stderr
	}
	return func(_ context.Context, state graph.State) (graph.State, error) {
		data, err := json.Marshal(state)
		if err != nil {
			fmt.Fprintf(w, "current state: %v\n", state)
		} else {
			fmt.Fprintf(w, "current state: %s\n", data)
		}
		return graph.State{}, nil
	}
}
