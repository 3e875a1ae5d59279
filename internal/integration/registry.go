package integration

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-wide catalog mapping slugs to Definitions.
//
// It is built explicitly at startup (registration calls or FromConfig) and
// shared read-mostly afterward. Mutations are atomic with respect to a
// single registration call.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Add registers def under slug, or under its default slug when slug is
// empty. Fails with ErrAlreadyExists on a duplicate slug and ErrInvalid
// when the definition fails its class-level checks.
func (r *Registry) Add(def Definition, slug string) error {
	if slug == "" {
		slug = def.Slug()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[slug]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, slug)
	}
	if err := def.Validate(); err != nil {
		return err
	}

	r.defs[slug] = def
	r.order = append(r.order, slug)
	return nil
}

// Upsert registers def under its default slug, replacing any existing
// entry. Invalid definitions are still rejected: permissive replacement
// must not become a path around the class-level contract.
func (r *Registry) Upsert(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	slug := def.Slug()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[slug]; !ok {
		r.order = append(r.order, slug)
	}
	r.defs[slug] = def
	return nil
}

// Get resolves a slug, failing with ErrNotFound when absent.
func (r *Registry) Get(slug string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return def, nil
}

// All returns registered definitions in insertion order.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.defs[slug])
	}
	return out
}

// Slugs returns registered slugs in insertion order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Clear empties the registry. Used for test isolation and dynamic
// reconfiguration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs = make(map[string]Definition)
	r.order = nil
}

// FromConfig builds a registry from configuration blocks.
//
// blocks maps an integration identifier to one or more configuration
// payloads. Each payload is parsed by the identifier's factory against the
// integration's config model; a payload may carry an explicit "slug" to
// disambiguate multiple instances of the same type. Every block beyond the
// first must supply a distinct slug or registration fails with
// ErrAlreadyExists. Unknown identifiers fail with ErrNotFound; payloads
// failing schema validation fail with ErrConfigInvalid.
func FromConfig(blocks map[string][]map[string]interface{}, factories map[string]Factory) (*Registry, error) {
	registry := NewRegistry()

	// Deterministic registration order regardless of map iteration.
	keys := make([]string, 0, len(blocks))
	for key := range blocks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		factory, ok := factories[key]
		if !ok {
			return nil, fmt.Errorf("%w: no integration for config key %q", ErrNotFound, key)
		}

		for _, block := range blocks[key] {
			def, err := factory(block)
			if err != nil {
				return nil, err
			}

			slug, _ := block["slug"].(string)
			if err := registry.Add(def, slug); err != nil {
				return nil, err
			}
		}
	}

	return registry, nil
}
