package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlugin struct {
	name      string
	initErr   error
	startErr  error
	events    *[]string
}

func (p *recordingPlugin) Name() string   { return p.name }
func (p *recordingPlugin) Domain() string { return "test" }

func (p *recordingPlugin) Init(ctx context.Context, k Kernel) error {
	*p.events = append(*p.events, "init:"+p.name)
	return p.initErr
}

func (p *recordingPlugin) Start(ctx context.Context) error {
	*p.events = append(*p.events, "start:"+p.name)
	return p.startErr
}

func (p *recordingPlugin) Destroy(ctx context.Context) error {
	*p.events = append(*p.events, "destroy:"+p.name)
	return nil
}

type fakeKernel struct {
	registry *Registry
	bus      *Bus
	deps     *DependencyResolver
}

func (k *fakeKernel) Registry() *Registry { return k.registry }
func (k *fakeKernel) Bus() *Bus           { return k.bus }
func (k *fakeKernel) DependsOn(plugin string, deps ...string) {
	k.deps.DependsOn(plugin, deps...)
}

func TestLifecycleBootstrapRunsInitThenStartForAll(t *testing.T) {
	var events []string
	registry := NewRegistry()
	deps := NewDependencyResolver()
	health := NewHealthMonitor()
	k := &fakeKernel{registry: registry, bus: NewBus(), deps: deps}

	require.NoError(t, registry.Register(&recordingPlugin{name: "a", events: &events}))
	require.NoError(t, registry.Register(&recordingPlugin{name: "b", events: &events}))

	lm := NewLifecycleManager(registry, deps, health, nil)
	require.NoError(t, lm.Bootstrap(context.Background(), k))

	assert.Equal(t, []string{"init:a", "init:b", "start:a", "start:b"}, events)
	assert.Equal(t, StatusStarted, health.Get("a").Status)
	assert.Equal(t, StatusStarted, health.Get("b").Status)
}

func TestLifecycleBootstrapRollsBackOnStartFailure(t *testing.T) {
	var events []string
	registry := NewRegistry()
	deps := NewDependencyResolver()
	health := NewHealthMonitor()
	k := &fakeKernel{registry: registry, bus: NewBus(), deps: deps}

	require.NoError(t, registry.Register(&recordingPlugin{name: "a", events: &events}))
	require.NoError(t, registry.Register(&recordingPlugin{name: "b", events: &events, startErr: errors.New("boom")}))

	lm := NewLifecycleManager(registry, deps, health, nil)
	err := lm.Bootstrap(context.Background(), k)
	require.Error(t, err)

	assert.Contains(t, events, "destroy:a")
	assert.Contains(t, events, "destroy:b")
	assert.Equal(t, StatusFailed, health.Get("b").Status)
}

func TestLifecycleShutdownDestroysInReverseOrder(t *testing.T) {
	var events []string
	registry := NewRegistry()
	deps := NewDependencyResolver()
	health := NewHealthMonitor()

	require.NoError(t, registry.Register(&recordingPlugin{name: "a", events: &events}))
	require.NoError(t, registry.Register(&recordingPlugin{name: "b", events: &events}))

	lm := NewLifecycleManager(registry, deps, health, nil)
	require.NoError(t, lm.Shutdown(context.Background()))

	assert.Equal(t, []string{"destroy:b", "destroy:a"}, events)
}
