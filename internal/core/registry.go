package core

import (
	"fmt"
	"sort"
	"sync"
)

// registration is a schema plus the hooks the host attached to it.
type registration struct {
	schema Schema
	hooks  Hooks
}

// Registry holds the schemas sessions can be started for.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register adds a schema under its key. Fields with an empty label take
// their key as label.
func (r *Registry) Register(s Schema, hooks Hooks) error {
	if s.Key == "" {
		return fmt.Errorf("schema without key")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q has no fields", s.Key)
	}

	seen := make(map[string]bool, len(s.Fields))
	fields := make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		if f.Key == "" {
			return fmt.Errorf("schema %q: field %d has no key", s.Key, i)
		}
		if seen[f.Key] {
			return fmt.Errorf("schema %q: duplicate field %q", s.Key, f.Key)
		}
		seen[f.Key] = true
		if f.Label == "" {
			f.Label = f.Key
		}
		fields[i] = f
	}
	s.Fields = fields
	if s.Table == "" {
		s.Table = s.Key
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[s.Key]; exists {
		return fmt.Errorf("schema already registered: %s", s.Key)
	}
	r.entries[s.Key] = registration{schema: s, hooks: hooks}
	return nil
}

// MustRegister is Register for init-time setup; it panics on error.
func (r *Registry) MustRegister(s Schema, hooks Hooks) {
	if err := r.Register(s, hooks); err != nil {
		panic(err)
	}
}

// SetHooks replaces the hooks of a registered schema.
func (r *Registry) SetHooks(key string, hooks Hooks) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, key)
	}
	reg.hooks = hooks
	r.entries[key] = reg
	return nil
}

// Get returns a schema and its hooks by key.
func (r *Registry) Get(key string) (Schema, Hooks, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[key]
	return reg.schema, reg.hooks, ok
}

// All returns every schema sorted by key.
func (r *Registry) All() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Schema, 0, len(r.entries))
	for _, reg := range r.entries {
		result = append(result, reg.schema)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
