package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectql/objectos-sub004/internal/event"
)

func TestBusObserverTopicRunsAllHandlers(t *testing.T) {
	b := NewBus()
	var calls []int

	_, err := b.Hook("data.create", func(ctx context.Context, payload any) error {
		calls = append(calls, 1)
		return errors.New("boom")
	})
	require.NoError(t, err)
	_, err = b.Hook("data.create", func(ctx context.Context, payload any) error {
		calls = append(calls, 2)
		return nil
	})
	require.NoError(t, err)

	err = b.Trigger(context.Background(), "data.create", nil)
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, calls)
}

func TestBusGateTopicAbortsOnFirstError(t *testing.T) {
	b := NewBus()
	var calls []int

	_, err := b.Hook(event.TopicBeforeDelete, func(ctx context.Context, payload any) error {
		calls = append(calls, 1)
		return errors.New("denied")
	})
	require.NoError(t, err)
	_, err = b.Hook(event.TopicBeforeDelete, func(ctx context.Context, payload any) error {
		calls = append(calls, 2)
		return nil
	})
	require.NoError(t, err)

	err = b.Trigger(context.Background(), event.TopicBeforeDelete, nil)
	require.Error(t, err)
	assert.Equal(t, []int{1}, calls)
}

func TestBusHandlersRunInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := b.Hook("job.completed", func(ctx context.Context, payload any) error {
			order = append(order, name)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, b.Trigger(context.Background(), "job.completed", nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	var called bool

	unsub, err := b.Hook("notify.sent", func(ctx context.Context, payload any) error {
		called = true
		return nil
	})
	require.NoError(t, err)

	unsub()
	require.NoError(t, b.Trigger(context.Background(), "notify.sent", nil))
	assert.False(t, called)
}

func TestIsGateTopic(t *testing.T) {
	assert.True(t, IsGateTopic("beforeCreate"))
	assert.True(t, IsGateTopic("beforeDelete"))
	assert.True(t, IsGateTopic(event.TopicBeforeCreate))
	assert.True(t, IsGateTopic(event.TopicBeforeUpdate))
	assert.True(t, IsGateTopic(event.TopicBeforeDelete))
	assert.True(t, IsGateTopic(event.TopicBeforeFind))
	assert.False(t, IsGateTopic("data.create"))
	assert.False(t, IsGateTopic(event.TopicCreate))
	assert.False(t, IsGateTopic("job.failed"))
}

// TestBusRealGateTopicDeniedStatusSurvives is a regression test for the
// permission gate on the actual namespaced topic names the kernel uses
// (data.beforeCreate, not the bare "beforeCreate" used elsewhere in this
// file): a gate handler's error must abort the remaining gate handlers and
// come back wrapped (with %w), so a typed error like
// pkg/errors.ServiceError survives errors.As at the HTTP boundary.
func TestBusRealGateTopicDeniedStatusSurvives(t *testing.T) {
	b := NewBus()
	var ranSecond bool

	sentinel := errors.New("permission denied")
	_, err := b.Hook(event.TopicBeforeCreate, func(ctx context.Context, payload any) error {
		return sentinel
	})
	require.NoError(t, err)
	_, err = b.Hook(event.TopicBeforeCreate, func(ctx context.Context, payload any) error {
		ranSecond = true
		return nil
	})
	require.NoError(t, err)

	err = b.Trigger(context.Background(), event.TopicBeforeCreate, nil)
	require.Error(t, err)
	assert.False(t, ranSecond)
	assert.ErrorIs(t, err, sentinel)
}
