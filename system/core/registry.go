package core

import (
	"fmt"
	"sync"
)

// Registry manages plugin registration and named service lookup. Plugin
// registration is first-registration-wins: a second Register call for the
// same name is rejected rather than replacing the incumbent.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string

	services map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]Plugin),
		services: make(map[string]any),
	}
}

// Register adds a plugin to the registry. Names must be unique.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("core: plugin is nil")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("core: plugin name required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("core: plugin %q already registered", name)
	}
	r.plugins[name] = p
	r.order = append(r.order, name)
	return nil
}

// Lookup returns a registered plugin by name, or nil.
func (r *Registry) Lookup(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[name]
}

// Plugins returns registered plugin names in registration order.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// PluginsByNames resolves a list of names to their Plugin values, skipping
// any name that isn't registered.
func (r *Registry) PluginsByNames(names []string) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(names))
	for _, name := range names {
		if p, ok := r.plugins[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// RegisterService publishes a named service for lookup by other plugins.
// Like plugin registration, the first registration for a name wins; a
// duplicate call returns an error rather than overwriting the incumbent.
func (r *Registry) RegisterService(name string, svc any) error {
	name = trimSpace(name)
	if name == "" {
		return fmt.Errorf("core: service name required")
	}
	if svc == nil {
		return fmt.Errorf("core: service %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return fmt.Errorf("core: service %q already registered", name)
	}
	r.services[name] = svc
	return nil
}

// Service returns a previously registered service by name.
func (r *Registry) Service(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// HasService reports whether a named service has been registered.
func (r *Registry) HasService(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[name]
	return ok
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
