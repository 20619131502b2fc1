// Package bootstrap wires the kernel primitives in system/core together
// into a runnable Kernel, the way a host process assembles them before
// handing control to its plugins.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/objectql/objectos-sub004/system/core"
	"github.com/objectql/objectos-sub004/system/framework"
)

// kernel is the concrete core.Kernel implementation assembled by Bootstrap.
// It is deliberately unexported: plugins receive it through the Kernel
// interface and should never depend on its concrete type.
type kernel struct {
	registry *core.Registry
	bus      *core.Bus
	deps     *core.DependencyResolver
}

func (k *kernel) Registry() *core.Registry { return k.registry }
func (k *kernel) Bus() *core.Bus           { return k.bus }
func (k *kernel) DependsOn(plugin string, deps ...string) {
	k.deps.DependsOn(plugin, deps...)
}

var _ core.Kernel = (*kernel)(nil)

// Config configures a Kernel assembly.
type Config struct {
	// Logger receives lifecycle and health events. If nil, logrus's
	// standard logger is used.
	Logger *logrus.Logger

	// Plugins are registered with the kernel before Bootstrap resolves
	// dependency order. Registration is first-wins: a name collision is
	// reported by Register and aborts assembly.
	Plugins []core.Plugin

	// CapabilityGrants pre-authorizes a plugin to hold a capability before
	// its Init runs, mirroring what a manifest's declared capabilities
	// would grant once the manifest/capability wiring is driven from
	// parsed manifests rather than supplied programmatically.
	CapabilityGrants map[string][]string
}

// Kernel bundles every kernel primitive a host process needs: the live
// core.Kernel handed to plugins, plus the health monitor, capability
// manager, and lifecycle manager used to drive and observe it.
type Kernel struct {
	Core         core.Kernel
	Registry     *core.Registry
	Bus          *core.Bus
	Deps         *core.DependencyResolver
	Health       *core.HealthMonitor
	Capabilities *framework.CapabilityManager
	Lifecycle    *core.LifecycleManager

	log *logrus.Logger
}

// Assemble constructs a Kernel from cfg, registering every configured
// plugin and its capability grants, but does not run Init/Start, call
// Bootstrap for that.
func Assemble(cfg Config) (*Kernel, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	registry := core.NewRegistry()
	bus := core.NewBus()
	deps := core.NewDependencyResolver()
	health := core.NewHealthMonitor()
	caps := framework.NewCapabilityManager()

	k := &kernel{registry: registry, bus: bus, deps: deps}

	for _, p := range cfg.Plugins {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("bootstrap: register %s: %w", p.Name(), err)
		}
		health.MarkStatus(p.Name(), p.Domain(), core.StatusRegistered, "")
	}

	for plugin, grants := range cfg.CapabilityGrants {
		for _, cap := range grants {
			if err := caps.Grant(context.Background(), plugin, cap, "manifest"); err != nil {
				return nil, fmt.Errorf("bootstrap: grant %s to %s: %w", cap, plugin, err)
			}
		}
	}

	return &Kernel{
		Core:         k,
		Registry:     registry,
		Bus:          bus,
		Deps:         deps,
		Health:       health,
		Capabilities: caps,
		Lifecycle:    core.NewLifecycleManager(registry, deps, health, log),
		log:          log,
	}, nil
}

// Bootstrap assembles a Kernel from cfg and runs its full init/start
// sequence. On failure, any plugin already initialized is destroyed in
// reverse order before the error is returned.
func Bootstrap(ctx context.Context, cfg Config) (*Kernel, error) {
	k, err := Assemble(cfg)
	if err != nil {
		return nil, err
	}
	if err := k.Lifecycle.Bootstrap(ctx, k.Core); err != nil {
		return nil, err
	}
	return k, nil
}

// Shutdown destroys every plugin in the reverse of the resolved dependency
// order.
func (k *Kernel) Shutdown(ctx context.Context) error {
	return k.Lifecycle.Shutdown(ctx)
}

// Overall returns the worst-case health status across every registered plugin.
func (k *Kernel) Overall() string {
	return k.Health.Overall(k.Registry.Plugins())
}
