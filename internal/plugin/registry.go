package plugin

import (
	"fmt"
	"log/slog"
	"sort"
)

// Factory instantiates one plugin from its configuration.
type Factory func(cfg Config) (Spec, error)

// Registry maps plugin names to factories. The engine never discovers or
// loads plugin code; job files reference names registered here at startup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. Registering a name twice is a programmer
// error.
func (r *Registry) Register(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("plugin factory %q already registered", name))
	}
	slog.Debug("Registering plugin factory.", "name", name)
	r.factories[name] = f
}

// New instantiates a plugin by name with the given configuration.
func (r *Registry) New(name string, cfg Config) (Spec, error) {
	f, ok := r.factories[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown plugin %q", name)
	}
	spec, err := f(cfg)
	if err != nil {
		return Spec{}, fmt.Errorf("instantiate plugin %q: %w", name, err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Names lists registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
