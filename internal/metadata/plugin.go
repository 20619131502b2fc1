package metadata

import (
	"context"

	"github.com/objectql/objectos-sub004/system/core"
	"github.com/objectql/objectos-sub004/system/framework"
)

// PluginName is the registry/manifest identifier for the metadata plugin.
const PluginName = "objectos-metadata"

// Plugin wires Registry into the kernel lifecycle as the "metadata"
// service, for lookup by the HTTP adapter's /metadata/objects routes and
// by any plugin that wants to introspect loaded object/field definitions.
type Plugin struct {
	*framework.PluginBase

	registry *Registry
}

// NewPlugin creates a metadata plugin around registry. If registry is nil,
// an empty Registry is created.
func NewPlugin(registry *Registry) *Plugin {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Plugin{
		PluginBase: framework.NewPluginBase(PluginName, "metadata"),
		registry:   registry,
	}
}

// Registry returns the underlying metadata registry.
func (p *Plugin) Registry() *Registry { return p.registry }

func (p *Plugin) Init(ctx context.Context, k core.Kernel) error {
	p.SetState(framework.StateInitializing)
	if err := k.Registry().RegisterService("metadata", p.registry); err != nil {
		p.MarkFailed(err)
		return err
	}
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.MarkStarted()
	return nil
}

func (p *Plugin) Destroy(ctx context.Context) error {
	p.MarkStopped()
	return nil
}

var _ core.Plugin = (*Plugin)(nil)
