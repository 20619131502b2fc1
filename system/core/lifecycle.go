package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// LifecycleManager drives plugins through the init and start phases in
// dependency order, and destroys them in reverse order on shutdown or
// rollback. Init and start are kept as distinct passes, every plugin is
// initialized (services registered, hooks wired) before any plugin is
// started, so that a plugin's Start can safely assume every other plugin's
// services already exist.
type LifecycleManager struct {
	registry *Registry
	deps     *DependencyResolver
	health   *HealthMonitor
	log      *logrus.Logger
}

// NewLifecycleManager creates a lifecycle manager bound to the given
// registry, dependency resolver and health monitor.
func NewLifecycleManager(registry *Registry, deps *DependencyResolver, health *HealthMonitor, log *logrus.Logger) *LifecycleManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LifecycleManager{registry: registry, deps: deps, health: health, log: log}
}

// Bootstrap resolves plugin order, runs Init on every plugin in that order,
// then runs Start on every plugin in the same order. If any Init or Start
// call fails, every plugin that already reached Init is destroyed in
// reverse order before the error is returned.
func (lm *LifecycleManager) Bootstrap(ctx context.Context, k Kernel) error {
	names := lm.registry.Plugins()

	if err := lm.deps.Verify(names); err != nil {
		return err
	}
	order, err := lm.deps.Resolve(names)
	if err != nil {
		return err
	}
	plugins := lm.registry.PluginsByNames(order)

	initialized := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			lm.rollback(ctx, initialized)
			return err
		}

		lm.health.MarkStatus(p.Name(), p.Domain(), StatusInitializing, "")
		if err := p.Init(ctx, k); err != nil {
			lm.health.MarkStatus(p.Name(), p.Domain(), StatusFailed, err.Error())
			lm.rollback(ctx, initialized)
			return fmt.Errorf("core: init %s: %w", p.Name(), err)
		}
		lm.health.MarkStatus(p.Name(), p.Domain(), StatusInitialized, "")
		initialized = append(initialized, p)
	}

	started := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			lm.rollback(ctx, initialized)
			return err
		}

		lm.health.MarkStatus(p.Name(), p.Domain(), StatusStarting, "")
		if err := p.Start(ctx); err != nil {
			lm.health.MarkStatus(p.Name(), p.Domain(), StatusFailed, err.Error())
			// roll back everything already started, then the rest that
			// only reached Init.
			lm.destroyReverse(ctx, started)
			lm.destroyReverse(ctx, diffPlugins(initialized, started))
			return fmt.Errorf("core: start %s: %w", p.Name(), err)
		}
		lm.health.MarkStarted(p.Name(), p.Domain())
		started = append(started, p)
	}

	return nil
}

// Shutdown destroys every registered plugin in the reverse of the dependency
// order Bootstrap resolves (reverse registration order if that order cannot
// be resolved), logging (but not aborting on) individual failures so the
// rest still get a chance to release their resources.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	names := lm.registry.Plugins()
	if order, err := lm.deps.Resolve(names); err == nil {
		names = order
	}
	plugins := lm.registry.PluginsByNames(names)
	lm.destroyReverse(ctx, plugins)
	return nil
}

func (lm *LifecycleManager) rollback(ctx context.Context, initialized []Plugin) {
	lm.destroyReverse(ctx, initialized)
}

func (lm *LifecycleManager) destroyReverse(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Destroy(ctx); err != nil {
			lm.log.WithField("plugin", p.Name()).WithError(err).Warn("plugin destroy failed")
			lm.health.MarkDestroyed(p.Name(), p.Domain(), err.Error())
		} else {
			lm.health.MarkDestroyed(p.Name(), p.Domain(), "")
		}
		if setter, ok := p.(ReadySetter); ok {
			setter.SetReady(false, "")
		}
	}
}

// diffPlugins returns the elements of a not present in b, preserving a's
// order, comparing by plugin name.
func diffPlugins(a, b []Plugin) []Plugin {
	exclude := make(map[string]bool, len(b))
	for _, p := range b {
		exclude[p.Name()] = true
	}
	out := make([]Plugin, 0, len(a))
	for _, p := range a {
		if !exclude[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}
