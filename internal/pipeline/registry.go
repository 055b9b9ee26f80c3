package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// StageConstructor builds one stage instance for a pipeline definition.
type StageConstructor func() (Stage, error)

// Registry maps stage identifiers to constructors. Unknown identifiers are
// a configuration fault surfaced at pipeline construction, before any item
// is processed.
type Registry struct {
	constructors map[string]StageConstructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]StageConstructor)}
}

// Register adds one stage kind under a normalized identifier.
func (r *Registry) Register(name string, constructor StageConstructor) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if constructor == nil {
		return fmt.Errorf("stage constructor is nil")
	}
	normalized := normalizeStageName(name)
	if normalized == "" {
		return fmt.Errorf("stage name is required")
	}
	if _, exists := r.constructors[normalized]; exists {
		return fmt.Errorf("stage %q is already registered", normalized)
	}
	r.constructors[normalized] = constructor
	return nil
}

// Build resolves one identifier into a stage instance.
func (r *Registry) Build(name string) (Stage, error) {
	if r == nil || len(r.constructors) == 0 {
		return nil, fmt.Errorf("no pipeline stages are registered")
	}
	normalized := normalizeStageName(name)
	constructor, ok := r.constructors[normalized]
	if !ok {
		return nil, fmt.Errorf("pipeline stage %q is not registered (available: %s)", normalized, strings.Join(r.StageNames(), ", "))
	}
	return constructor()
}

func (r *Registry) StageNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeStageName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
