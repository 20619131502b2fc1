package core

import "context"

// Plugin is the contract every ObjectOS plugin implements to run on the
// kernel. Name must be unique across the registry; Init wires the plugin's
// services and hook handlers, Start begins any background work, and Destroy
// releases resources in the reverse order plugins were started.
type Plugin interface {
	Name() string
	Domain() string
	Init(ctx context.Context, k Kernel) error
	Start(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// Kernel is the surface a Plugin sees during Init: enough to register
// services, hook into bus topics, and declare dependencies, without exposing
// the orchestration methods (Use/Bootstrap/Shutdown) that belong to the host
// process.
type Kernel interface {
	Registry() *Registry
	Bus() *Bus
	DependsOn(plugin string, deps ...string)
}

// HealthChecker is implemented by plugins that can report their own health
// beyond the kernel's lifecycle-derived status.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadySetter lets the kernel push readiness transitions back into a plugin
// that wants to react to them (e.g. to stop accepting new work).
type ReadySetter interface {
	SetReady(ready bool, reason string)
}
