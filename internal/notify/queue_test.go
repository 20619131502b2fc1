package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesDottedPath(t *testing.T) {
	req := Request{
		Subject: "Welcome {{ user.name }}",
		Body:    "Hi {{ user.name }}, your plan is {{ plan }}.",
		Data: map[string]any{
			"user": map[string]any{"name": "Ada"},
			"plan": "pro",
		},
	}
	subject, body, err := Render(req)
	require.NoError(t, err)
	assert.Equal(t, "Welcome Ada", subject)
	assert.Equal(t, "Hi Ada, your plan is pro.", body)
}

func TestRender_UnresolvedVariableErrors(t *testing.T) {
	req := Request{Body: "Hi {{ user.name }}"}
	_, _, err := Render(req)
	assert.Error(t, err)
}

func TestRender_Idempotent(t *testing.T) {
	req := Request{Body: "Hi {{ name }}", Data: map[string]any{"name": "Ada"}}
	_, body1, err := Render(req)
	require.NoError(t, err)
	req.Body = body1
	_, body2, err := Render(req)
	require.NoError(t, err)
	assert.Equal(t, body1, body2)
}

func TestQueue_SynchronousSendBypassesQueue(t *testing.T) {
	q := New(Config{Synchronous: true})
	var got Notification
	q.RegisterChannel(ChannelEmail, func(ctx context.Context, n Notification) error {
		got = n
		return nil
	})

	id, err := q.Send(context.Background(), Request{
		Channel: ChannelEmail,
		Body:    "Hi {{ name }}",
		Data:    map[string]any{"name": "Ada"},
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Hi Ada", got.Request.Body)

	n, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusSent, n.Status)
}

func TestQueue_AsyncSendDispatchesOnTick(t *testing.T) {
	q := New(Config{})
	dispatched := false
	q.RegisterChannel(ChannelWebhook, func(ctx context.Context, n Notification) error {
		dispatched = true
		return nil
	})

	ctx := context.Background()
	id, err := q.Send(ctx, Request{Channel: ChannelWebhook, Body: "ping"}, 3)
	require.NoError(t, err)

	n, _ := q.Get(id)
	assert.Equal(t, StatusPending, n.Status)
	assert.False(t, dispatched)

	q.Tick(ctx)

	assert.True(t, dispatched)
	n, _ = q.Get(id)
	assert.Equal(t, StatusSent, n.Status)
}

func TestQueue_RetriesOnChannelFailure(t *testing.T) {
	q := New(Config{RetryBase: time.Millisecond})
	attempts := 0
	q.RegisterChannel(ChannelSMS, func(ctx context.Context, n Notification) error {
		attempts++
		if attempts < 2 {
			return errors.New("provider timeout")
		}
		return nil
	})

	ctx := context.Background()
	id, err := q.Send(ctx, Request{Channel: ChannelSMS, Body: "code: 1234"}, 3)
	require.NoError(t, err)

	q.Tick(ctx)
	n, _ := q.Get(id)
	assert.Equal(t, StatusRetrying, n.Status)

	time.Sleep(2 * time.Millisecond)
	q.Tick(ctx)
	n, _ = q.Get(id)
	assert.Equal(t, StatusSent, n.Status)
}

func TestQueue_CancelPending(t *testing.T) {
	q := New(Config{})
	ctx := context.Background()
	id, err := q.Send(ctx, Request{Channel: ChannelPush, Body: "hi"}, 3)
	require.NoError(t, err)

	require.NoError(t, q.Cancel(id))
	n, _ := q.Get(id)
	assert.Equal(t, StatusCancelled, n.Status)
}

func TestQueue_Status(t *testing.T) {
	q := New(Config{})
	ctx := context.Background()
	_, _ = q.Send(ctx, Request{Channel: ChannelEmail, Body: "a"}, 3)
	_, _ = q.Send(ctx, Request{Channel: ChannelEmail, Body: "b"}, 3)

	status := q.Status()
	assert.Equal(t, 2, status.Pending)
	assert.Equal(t, 2, status.Total)
	assert.True(t, status.Enabled)
}
