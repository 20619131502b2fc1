// Package metadata implements ObjectOS's typed metadata registry (spec.md
// §4.10): a (Type, ID)-keyed collection of object/field/app/chart/page
// definitions loaded from external sources (YAML manifests, the data
// driver's schema introspection), with system-owned entries that reject
// mutation.
package metadata

import (
	"fmt"
	"sort"
	"sync"

	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
)

// Type enumerates the kinds of entry the registry stores.
type Type string

const (
	TypeObject Type = "object"
	TypeField  Type = "field"
	TypeApp    Type = "app"
	TypeChart  Type = "chart"
	TypePage   Type = "page"
)

// Entry is one registered metadata item.
type Entry struct {
	Type         Type
	ID           string
	Package      string // optional source grouping, e.g. a plugin/manifest name
	Customizable bool   // false flags a system-owned entry
	Content      any    // the object/field/app/.../ definition payload
}

func key(t Type, id string) string { return string(t) + ":" + id }

// Registry is the kernel's metadata store.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty metadata registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces entry, including a system-owned
// (Customizable: false) one; it rejects only an empty ID. It does not check
// customizability: that check is ValidateObjectCustomizable /
// ValidateFieldCustomizable, which callers run before Register.
func (r *Registry) Register(e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("metadata: id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key(e.Type, e.ID)] = e
	return nil
}

// Unregister removes an entry. Per spec.md §4.10 and §8 invariant 7, a
// system-flagged entry's Unregister is a no-op that returns an error, the
// entry remains present afterward.
func (r *Registry) Unregister(t Type, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(t, id)
	e, ok := r.entries[k]
	if !ok {
		return pkgerrors.NotFound(string(t), id)
	}
	if !e.Customizable {
		return pkgerrors.New(pkgerrors.ErrCodeValidation,
			fmt.Sprintf("%s %q is system-owned and cannot be unregistered", t, id), 400)
	}
	delete(r.entries, k)
	return nil
}

// Get returns an entry by (type, id).
func (r *Registry) Get(t Type, id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(t, id)]
	return e, ok
}

// List returns every entry of the given type, sorted by id.
func (r *Registry) List(t Type) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0)
	for _, e := range r.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnregisterPackage removes every entry whose Package matches pkg,
// skipping (and reporting) any that are system-owned rather than aborting
// partway through.
func (r *Registry) UnregisterPackage(pkg string) (removed int, skipped []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, e := range r.entries {
		if e.Package != pkg {
			continue
		}
		if !e.Customizable {
			skipped = append(skipped, k)
			continue
		}
		delete(r.entries, k)
		removed++
	}
	sort.Strings(skipped)
	return removed, skipped
}

// ValidateObjectCustomizable reports whether an object named id may be
// mutated: true if it doesn't exist yet (allowing creation) or exists and
// is customizable; otherwise it returns a typed error naming the system
// object, per spec.md §4.10.
func (r *Registry) ValidateObjectCustomizable(id string) (bool, error) {
	return r.validateCustomizable(TypeObject, id, id)
}

// ValidateFieldCustomizable reports the same, scoped to a field on object.
func (r *Registry) ValidateFieldCustomizable(object, field string) (bool, error) {
	fieldID := object + "." + field
	return r.validateCustomizable(TypeField, fieldID, fieldID)
}

func (r *Registry) validateCustomizable(t Type, id, displayName string) (bool, error) {
	r.mu.RLock()
	e, ok := r.entries[key(t, id)]
	r.mu.RUnlock()

	if !ok {
		return true, nil
	}
	if e.Customizable {
		return true, nil
	}
	return false, pkgerrors.New(pkgerrors.ErrCodeValidation,
		fmt.Sprintf("%s %q is a system-owned %s and cannot be customized", t, displayName, t), 400)
}
