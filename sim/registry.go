package sim

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps plug-in names to factories. Sub-packages fill the package
// registries below from their init() functions.
type Registry[F any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]F
}

// NewRegistry creates an empty registry; kind is used in panic messages.
func NewRegistry[F any](kind string) *Registry[F] {
	return &Registry[F]{kind: kind, entries: make(map[string]F)}
}

// Register adds a factory under name. Panics on an empty or duplicate name.
func (r *Registry[F]) Register(name string, factory F) {
	if name == "" {
		panic(fmt.Sprintf("%s registry: empty name", r.kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("%s registry: %q registered twice", r.kind, name))
	}
	r.entries[name] = factory
}

// Lookup returns the factory registered under name.
func (r *Registry[F]) Lookup(name string) (F, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.entries[name]
	return f, ok
}

// Names returns all registered names in sorted order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	// Models holds lattice model constructors (sim/model).
	Models = NewRegistry[ModelFactory]("model")
	// Backends holds compute backend constructors (sim/backend).
	Backends = NewRegistry[BackendFactory]("backend")
	// Outputs holds output sink constructors (sim/output).
	Outputs = NewRegistry[OutputFactory]("output")
	// VisEngines holds visualization engine constructors (sim/vis).
	VisEngines = NewRegistry[VisEngineFactory]("visualization engine")
)
