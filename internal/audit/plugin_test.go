package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectql/objectos-sub004/internal/event"
	"github.com/objectql/objectos-sub004/system/bootstrap"
)

func newTestKernel(t *testing.T) *bootstrap.Kernel {
	t.Helper()
	k, err := bootstrap.Assemble(bootstrap.Config{})
	require.NoError(t, err)
	return k
}

func TestPlugin_InitRegistersServiceAndHooksObserverTopics(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))

	svc, ok := k.Registry.Service("audit")
	require.True(t, ok)
	assert.Same(t, p.Pipeline(), svc)

	assert.Equal(t, 1, k.Bus.HandlerCount(event.TopicCreate))
	assert.Equal(t, 1, k.Bus.HandlerCount(event.TopicJobCompleted))
}

func TestPlugin_ObservesDataCreateWithoutAborting(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))

	err := k.Bus.Trigger(context.Background(), event.TopicCreate, &event.DataEvent{
		ObjectName: "account", RecordID: "r1", Success: true, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	entry, ok, err := p.Pipeline().Store().Get(context.Background(), "account", "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "data.create", entry.EventType)
}

func TestPlugin_DestroyUnhooksTopics(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))
	require.NoError(t, p.Destroy(context.Background()))

	assert.Equal(t, 0, k.Bus.HandlerCount(event.TopicCreate))
	assert.Equal(t, 0, k.Bus.HandlerCount(event.TopicJobCompleted))
}

func TestPlugin_NameAndDomain(t *testing.T) {
	p := NewPlugin(nil)
	assert.Equal(t, PluginName, p.Name())
	assert.Equal(t, "audit", p.Domain())
}
