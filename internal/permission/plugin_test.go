package permission

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

func TestPlugin_InitRegistersServiceAndGates(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)

	require.NoError(t, p.Init(context.Background(), k.Core))

	svc, ok := k.Registry.Service("permission")
	require.True(t, ok)
	assert.Same(t, p.Engine(), svc)

	assert.Equal(t, 1, k.Bus.HandlerCount(event.TopicBeforeCreate))
	assert.Equal(t, 1, k.Bus.HandlerCount(event.TopicBeforeUpdate))
	assert.Equal(t, 1, k.Bus.HandlerCount(event.TopicBeforeDelete))
	assert.Equal(t, 1, k.Bus.HandlerCount(event.TopicBeforeFind))
}

func TestPlugin_GateDeniesUnauthorizedWrite(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))
	require.NoError(t, p.Engine().Store().RegisterPermissionSet(PermissionSet{
		Object:  "account",
		Profile: map[string]ProfilePermission{"sales": {AllowRead: true}},
	}))

	de := &event.DataEvent{
		ObjectName: "account",
		UserID:     "u1",
		Profiles:   []string{"sales"},
		Timestamp:  time.Now(),
	}
	err := k.Bus.Trigger(context.Background(), event.TopicBeforeDelete, de)
	require.Error(t, err)
}

func TestPlugin_GateAllowsAuthorizedRead(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))
	require.NoError(t, p.Engine().Store().RegisterPermissionSet(PermissionSet{
		Object:  "account",
		Profile: map[string]ProfilePermission{"sales": {AllowRead: true}},
	}))

	de := &event.DataEvent{
		ObjectName: "account",
		UserID:     "u1",
		Profiles:   []string{"sales"},
		Timestamp:  time.Now(),
	}
	err := k.Bus.Trigger(context.Background(), event.TopicBeforeFind, de)
	assert.NoError(t, err)
}

func TestPlugin_DestroyUnhooksGates(t *testing.T) {
	k := newTestKernel(t)
	p := NewPlugin(nil)
	require.NoError(t, p.Init(context.Background(), k.Core))
	require.NoError(t, p.Destroy(context.Background()))

	assert.Equal(t, 0, k.Bus.HandlerCount(event.TopicBeforeCreate))
	assert.Equal(t, 0, k.Bus.HandlerCount(event.TopicBeforeFind))
}

func TestPlugin_NameAndDomain(t *testing.T) {
	p := NewPlugin(nil)
	assert.Equal(t, PluginName, p.Name())
	assert.Equal(t, "permission", p.Domain())
}
