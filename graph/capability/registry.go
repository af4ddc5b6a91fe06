// Package capability provides the named-capability registry the engine
// resolves node bodies from, plus a set of built-in capabilities for code
// review workflows.
//
// Capabilities are external to the engine: a graph node names a capability,
// and the registry supplied at engine construction resolves that name to a
// function. Registries are plain values with no global instance; whoever
// assembles the process creates one and hands it to the engine and the API
// layer.
package capability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/graphrun/graphrun/graph"
)

// Registry is a thread-safe name-to-capability table. It implements
// graph.Resolver.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]graph.Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]graph.Capability)}
}

// Default creates a registry preloaded with the built-in code review
// capabilities: extract_functions, check_complexity, detect_issues,
// suggest_improvements, increment_iteration, pass_through and log_state.
func Default() *Registry {
	r := NewRegistry()
	for name, fn := range map[string]graph.Capability{
		"extract_functions":    ExtractFunctions,
		"check_complexity":     CheckComplexity,
		"detect_issues":        DetectIssues,
		"suggest_improvements": SuggestImprovements,
		"increment_iteration":  IncrementIteration,
		"pass_through":         PassThrough,
		"log_state":            LogState(nil),
	} {
		// Registration of distinct literal names cannot collide.
		_ = r.Register(name, fn)
	}
	return r
}

// Register adds a capability under name. It rejects an empty name, a nil
// function, and a name that is already registered.
func (r *Registry) Register(name string, fn graph.Capability) error {
	if name == "" {
		return fmt.Errorf("capability name is required")
	}
	if fn == nil {
		return fmt.Errorf("capability %q: function is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[name]; exists {
		return fmt.Errorf("capability %q is already registered", name)
	}
	r.caps[name] = fn
	return nil
}

// Resolve looks up a capability by name.
func (r *Registry) Resolve(name string) (graph.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.caps[name]
	return fn, ok
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a capability and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.caps[name]; !ok {
		return false
	}
	delete(r.caps, name)
	return true
}
