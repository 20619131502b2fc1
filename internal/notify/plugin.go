package notify

import (
	"context"

	"github.com/objectql/objectos-sub004/system/core"
	"github.com/objectql/objectos-sub004/system/framework"
)

// PluginName is the registry/manifest identifier for the notification
// queue plugin.
const PluginName = "objectos-notify"

// Plugin wires Queue into the kernel lifecycle, the sibling pattern to
// internal/jobqueue.Plugin.
type Plugin struct {
	*framework.PluginBase

	queue *Queue
}

// NewPlugin creates a notification plugin around queue. If queue is nil, a
// default Queue is created.
func NewPlugin(queue *Queue) *Plugin {
	if queue == nil {
		queue = New(Config{})
	}
	return &Plugin{
		PluginBase: framework.NewPluginBase(PluginName, "notify"),
		queue:      queue,
	}
}

// Queue returns the underlying notification queue.
func (p *Plugin) Queue() *Queue { return p.queue }

func (p *Plugin) Init(ctx context.Context, k core.Kernel) error {
	p.SetState(framework.StateInitializing)

	if err := k.Registry().RegisterService("notify", p.queue); err != nil {
		p.MarkFailed(err)
		return err
	}
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	if err := p.queue.Start(ctx); err != nil {
		p.MarkFailed(err)
		return err
	}
	p.MarkStarted()
	return nil
}

func (p *Plugin) Destroy(ctx context.Context) error {
	p.queue.Stop()
	p.MarkStopped()
	return nil
}

var _ core.Plugin = (*Plugin)(nil)
