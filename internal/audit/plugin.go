package audit

import (
	"context"
	"fmt"

	"github.com/objectql/objectos-sub004/internal/event"
	"github.com/objectql/objectos-sub004/system/core"
	"github.com/objectql/objectos-sub004/system/framework"
)

// PluginName is the registry/manifest identifier for the audit plugin.
const PluginName = "objectos-audit"

// dataTopics and jobTopics are every observer topic the pipeline hooks.
var dataTopics = []string{event.TopicCreate, event.TopicUpdate, event.TopicDelete, event.TopicFind}
var jobTopics = []string{
	event.TopicJobEnqueued, event.TopicJobScheduled, event.TopicJobStarted,
	event.TopicJobCompleted, event.TopicJobFailed, event.TopicJobRetried, event.TopicJobCancelled,
}

// Plugin wires Pipeline into the kernel lifecycle, grounded on the same
// register-service-then-hook-topics shape as internal/permission.Plugin.
type Plugin struct {
	*framework.PluginBase

	pipeline *Pipeline
	unhook   []func()
}

// NewPlugin creates an audit plugin around pipeline. If pipeline is nil, a
// default in-memory pipeline is created.
func NewPlugin(pipeline *Pipeline) *Plugin {
	if pipeline == nil {
		pipeline = NewPipeline(PipelineConfig{})
	}
	return &Plugin{
		PluginBase: framework.NewPluginBase(PluginName, "audit"),
		pipeline:   pipeline,
	}
}

// Pipeline returns the underlying audit pipeline.
func (p *Plugin) Pipeline() *Pipeline { return p.pipeline }

func (p *Plugin) Init(ctx context.Context, k core.Kernel) error {
	p.SetState(framework.StateInitializing)

	if err := k.Registry().RegisterService("audit", p.pipeline); err != nil {
		p.MarkFailed(err)
		return err
	}

	for _, topic := range dataTopics {
		t := topic
		unsub, err := k.Bus().Hook(t, func(hctx context.Context, payload any) error {
			de, ok := payload.(*event.DataEvent)
			if !ok {
				return fmt.Errorf("audit: unexpected payload type %T for topic %q", payload, t)
			}
			return p.pipeline.HandleDataEvent(hctx, t, de)
		})
		if err != nil {
			p.MarkFailed(err)
			return err
		}
		p.unhook = append(p.unhook, unsub)
	}

	for _, topic := range jobTopics {
		t := topic
		unsub, err := k.Bus().Hook(t, func(hctx context.Context, payload any) error {
			je, ok := payload.(*event.JobEvent)
			if !ok {
				return fmt.Errorf("audit: unexpected payload type %T for topic %q", payload, t)
			}
			return p.pipeline.HandleJobEvent(hctx, t, je)
		})
		if err != nil {
			p.MarkFailed(err)
			return err
		}
		p.unhook = append(p.unhook, unsub)
	}

	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.MarkStarted()
	return nil
}

func (p *Plugin) Destroy(ctx context.Context) error {
	for _, unsub := range p.unhook {
		unsub()
	}
	p.unhook = nil
	p.MarkStopped()
	return nil
}

var _ core.Plugin = (*Plugin)(nil)
