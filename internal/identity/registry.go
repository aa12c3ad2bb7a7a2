package identity

import "sort"

// Registry maps backend names to Source implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates a registry holding only the Noop source.
func NewRegistry() *Registry {
	return &Registry{
		sources: map[string]Source{NoopName: Noop{}},
	}
}

// Register adds a source under its own name, replacing any previous one.
func (r *Registry) Register(s Source) {
	r.sources[s.Name()] = s
}

// Get returns the source registered under the given name.
// Returns false if the name is not registered.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names returns a sorted list of all registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
