package permission

import (
	"context"
	"fmt"

	"github.com/objectql/objectos-sub004/internal/event"
	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
	"github.com/objectql/objectos-sub004/system/core"
	"github.com/objectql/objectos-sub004/system/framework"
)

// PluginName is the registry/manifest identifier for the permission plugin.
const PluginName = "objectos-permission"

// Plugin wires Engine into the kernel lifecycle: it registers itself as the
// "permission" system service and hooks every data.before* gate topic so a
// denied check aborts the mutation before the data driver ever runs,
// realizing the data flow in spec.md §2 ("beforeCreate hook fires →
// Permission Engine throws-or-annotates").
type Plugin struct {
	*framework.PluginBase

	engine *Engine
	unhook []func()
}

// NewPlugin creates a permission plugin around engine. If engine is nil, a
// default in-process Engine is created.
func NewPlugin(engine *Engine) *Plugin {
	if engine == nil {
		engine = NewEngine(EngineConfig{})
	}
	return &Plugin{
		PluginBase: framework.NewPluginBase(PluginName, "permission"),
		engine:     engine,
	}
}

// Engine returns the underlying permission engine.
func (p *Plugin) Engine() *Engine { return p.engine }

func (p *Plugin) Init(ctx context.Context, k core.Kernel) error {
	p.SetState(framework.StateInitializing)

	if err := k.Registry().RegisterService("permission", p.engine); err != nil {
		p.MarkFailed(err)
		return err
	}

	gates := []struct {
		topic  string
		action Action
	}{
		{event.TopicBeforeCreate, ActionCreate},
		{event.TopicBeforeUpdate, ActionUpdate},
		{event.TopicBeforeDelete, ActionDelete},
		{event.TopicBeforeFind, ActionRead},
	}

	for _, g := range gates {
		action := g.action
		unsub, err := k.Bus().Hook(g.topic, func(hctx context.Context, payload any) error {
			return p.checkGate(hctx, action, payload)
		})
		if err != nil {
			p.MarkFailed(err)
			return err
		}
		p.unhook = append(p.unhook, unsub)
	}

	return nil
}

func (p *Plugin) checkGate(ctx context.Context, action Action, payload any) error {
	de, ok := payload.(*event.DataEvent)
	if !ok {
		return fmt.Errorf("permission: unexpected payload type %T for gate hook", payload)
	}

	pctx := Context{
		UserID:   de.UserID,
		Profiles: de.Profiles,
		Metadata: de.Metadata,
	}

	result, err := p.engine.Check(ctx, pctx, de.ObjectName, action)
	if err != nil {
		return err
	}
	if !result.Allowed {
		reason := result.Reason
		if reason == "" {
			reason = fmt.Sprintf("No permission for action '%s' on object '%s'", action, de.ObjectName)
		}
		return pkgerrors.PermissionDenied(reason)
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
