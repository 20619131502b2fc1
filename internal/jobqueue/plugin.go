package jobqueue

import (
	"context"

	"github.com/objectql/objectos-sub004/system/core"
	"github.com/objectql/objectos-sub004/system/framework"
)

// PluginName is the registry/manifest identifier for the job queue plugin.
const PluginName = "objectos-jobqueue"

// Plugin wires Queue into the kernel lifecycle: it registers itself as the
// "jobqueue" system service and starts the cron-driven dispatch loop once
// the kernel's bus is available, so job.* events reach every other plugin's
// hooks (notably internal/audit).
type Plugin struct {
	*framework.PluginBase

	queue *Queue
}

// NewPlugin creates a job queue plugin around queue. If queue is nil, a
// default Queue is created from a zero Config.
func NewPlugin(queue *Queue) *Plugin {
	if queue == nil {
		queue = New(Config{})
	}
	return &Plugin{
		PluginBase: framework.NewPluginBase(PluginName, "jobqueue"),
		queue:      queue,
	}
}

// Queue returns the underlying job queue.
func (p *Plugin) Queue() *Queue { return p.queue }

func (p *Plugin) Init(ctx context.Context, k core.Kernel) error {
	p.SetState(framework.StateInitializing)

	p.queue.SetEmitter(k.Bus())

	if err := k.Registry().RegisterService("jobqueue", p.queue); err != nil {
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
