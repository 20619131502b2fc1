package jobqueue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectql/objectos-sub004/internal/audit"
	"github.com/objectql/objectos-sub004/system/bootstrap"
)

func TestPlugin_InitRegistersService(t *testing.T) {
	k, err := bootstrap.Assemble(bootstrap.Config{})
	require.NoError(t, err)

	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))

	svc, ok := k.Registry.Service("jobqueue")
	require.True(t, ok)
	assert.Same(t, p.Queue(), svc)
}

func TestPlugin_EventsReachAuditPipeline(t *testing.T) {
	k, err := bootstrap.Assemble(bootstrap.Config{})
	require.NoError(t, err)

	auditPlugin := audit.NewPlugin(nil)
	require.NoError(t, auditPlugin.Init(context.Background(), k.Core))

	q := New(Config{})
	p := NewPlugin(q)
	require.NoError(t, p.Init(context.Background(), k.Core))

	ctx := context.Background()
	q.RegisterHandler("noop", func(context.Context, any) error { return nil })
	_, err = q.Enqueue(ctx, "noop", nil, EnqueueOptions{})
	require.NoError(t, err)
	q.Tick(ctx)

	result, err := auditPlugin.Pipeline().QueryEvents(ctx, audit.Query{EventType: "job.completed"})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 1)
}

func TestPlugin_NameAndDomain(t *testing.T) {
	p := NewPlugin(nil)
	assert.Equal(t, PluginName, p.Name())
	assert.Equal(t, "jobqueue", p.Domain())
}
