package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPluginStateString(t *testing.T) {
	tests := []struct {
		state    PluginState
		expected string
	}{
		{StateUninitialized, "uninitialized"},
		{StateInitializing, "initializing"},
		{StateReady, "ready"},
		{StateNotReady, "not-ready"},
		{StateStopping, "stopping"},
		{StateStopped, "stopped"},
		{StateFailed, "failed"},
		{PluginState(99), "unknown"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.state.String())
	}
}

func TestNewPluginBase(t *testing.T) {
	b := NewPluginBase("crm-core", "crm")

	assert.Equal(t, "crm-core", b.Name())
	assert.Equal(t, "crm", b.Domain())
	assert.Equal(t, StateUninitialized, b.State())
}

func TestPluginBaseSetReady(t *testing.T) {
	b := NewPluginBase("test", "domain")

	b.SetReady(true, "")
	assert.True(t, b.IsReady())

	b.SetReady(false, "connection lost")
	assert.False(t, b.IsReady())
	assert.EqualError(t, b.LastError(), "connection lost")

	b.SetReady(true, "")
	assert.True(t, b.IsReady())
	assert.Nil(t, b.LastError())
}

func TestPluginBaseMarkStartedStopped(t *testing.T) {
	b := NewPluginBase("test", "domain")
	assert.True(t, b.StartedAt().IsZero())

	b.MarkStarted()
	assert.False(t, b.StartedAt().IsZero())
	assert.Equal(t, StateReady, b.State())

	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, b.Uptime(), 10*time.Millisecond)

	b.MarkStopped()
	assert.Equal(t, StateStopped, b.State())
}

func TestPluginBaseMarkFailed(t *testing.T) {
	b := NewPluginBase("test", "domain")
	err := errors.New("fatal error")
	b.MarkFailed(err)

	assert.Equal(t, StateFailed, b.State())
	assert.Equal(t, err, b.LastError())
}

func TestPluginBaseHealthCheck(t *testing.T) {
	ctx := context.Background()

	b := NewPluginBase("test", "domain")
	b.SetReady(true, "")
	assert.NoError(t, b.HealthCheck(ctx))

	b.MarkFailed(errors.New("db connection failed"))
	assert.Error(t, b.HealthCheck(ctx))
}

func TestPluginBaseMetadata(t *testing.T) {
	b := NewPluginBase("test", "domain")
	b.SetMetadata("key1", "value1")

	v, ok := b.GetMetadata("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", v)

	_, ok = b.GetMetadata("nonexistent")
	assert.False(t, ok)
}

func TestPluginBaseConcurrentAccess(t *testing.T) {
	b := NewPluginBase("concurrent", "domain")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.SetState(StateReady)
			b.SetState(StateNotReady)
			_ = b.State()
			_ = b.IsReady()
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			b.SetMetadata("key", "value")
			_, _ = b.GetMetadata("key")
		}(i)
	}
	wg.Wait()
}
