package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// colour marks a node's DFS visitation state for cycle detection.
type colour int

const (
	white colour = iota // unvisited
	grey                // on the current DFS stack
	black               // fully processed
)

// DependencyResolver tracks declared plugin dependencies and produces a
// bootstrap order that respects them.
type DependencyResolver struct {
	mu   sync.RWMutex
	deps map[string][]string // plugin -> its dependencies
}

// NewDependencyResolver creates an empty resolver.
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{deps: make(map[string][]string)}
}

// DependsOn records that plugin depends on deps. Calling it again for the
// same plugin replaces the previous declaration.
func (d *DependencyResolver) DependsOn(plugin string, deps ...string) {
	plugin = trimSpace(plugin)
	if plugin == "" {
		return
	}

	filtered := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep = trimSpace(dep); dep != "" {
			filtered = append(filtered, dep)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.deps[plugin] = filtered
}

// Deps returns the declared dependencies for a plugin.
func (d *DependencyResolver) Deps(plugin string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.deps[plugin]...)
}

// Verify ensures every declared dependency is among the registered plugins.
func (d *DependencyResolver) Verify(registered []string) error {
	set := make(map[string]bool, len(registered))
	for _, name := range registered {
		set[name] = true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var missing []string
	for plugin, deps := range d.deps {
		if !set[plugin] {
			continue
		}
		for _, dep := range deps {
			if !set[dep] {
				missing = append(missing, fmt.Sprintf("%s requires %s", plugin, dep))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("core: missing dependencies: %s", strings.Join(missing, "; "))
	}
	return nil
}

// Resolve returns names ordered so that every plugin appears after its
// dependencies (a topological sort), using depth-first search with
// three-colour marking so a cycle can be reported by its actual members
// rather than as an opaque "unresolved" set. Traversal order among siblings
// follows the input slice, so output is deterministic given deterministic
// input.
func (d *DependencyResolver) Resolve(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	deps := make(map[string][]string, len(d.deps))
	for k, v := range d.deps {
		deps[k] = append([]string{}, v...)
	}
	d.mu.RUnlock()

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	colours := make(map[string]colour, len(names))
	order := make([]string, 0, len(names))
	stack := make([]string, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch colours[name] {
		case black:
			return nil
		case grey:
			cycle := append(append([]string{}, stack...), name)
			start := 0
			for i, n := range cycle {
				if n == name {
					start = i
					break
				}
			}
			return fmt.Errorf("core: dependency cycle: %s", strings.Join(cycle[start:], " -> "))
		}

		colours[name] = grey
		stack = append(stack, name)

		for _, dep := range deps[name] {
			if !present[dep] {
				// Missing-dependency errors are reported by Verify; skip
				// here so Resolve focuses purely on ordering/cycles.
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		colours[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if colours[name] == white {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}

	return order, nil
}

// Dependents returns every plugin that declares a dependency on name.
func (d *DependencyResolver) Dependents(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	for plugin, deps := range d.deps {
		for _, dep := range deps {
			if dep == name {
				out = append(out, plugin)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Clear removes all recorded dependency declarations.
func (d *DependencyResolver) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deps = make(map[string][]string)
}
