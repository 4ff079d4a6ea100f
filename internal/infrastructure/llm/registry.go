package llm

import (
	"fmt"
	"sort"

	"ScoutNewsletter/internal/domain"
	"ScoutNewsletter/internal/ports"
)

// Registry keeps a mapping from provider names to configured generators.
type Registry struct {
	generators map[string]ports.TextGenerator
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{generators: map[string]ports.TextGenerator{}}
}

// Register adds or replaces a generator implementation.
func (r *Registry) Register(gen ports.TextGenerator) {
	if r.generators == nil {
		r.generators = map[string]ports.TextGenerator{}
	}
	r.generators[gen.Name()] = gen
}

// Resolve returns a generator by name. A provider missing from the registry had
// no credential configured, so the error is a configuration error.
func (r *Registry) Resolve(name string) (ports.TextGenerator, error) {
	if gen, ok := r.generators[name]; ok {
		return gen, nil
	}
	return nil, fmt.Errorf("%w: provider %q is not configured (registered: %v)", domain.ErrConfiguration, name, r.Names())
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
