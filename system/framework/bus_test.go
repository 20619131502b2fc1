package framework

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/objectql/objectos-sub004/system/core"
)

func TestBusClientSatisfiedByCoreBus(t *testing.T) {
	var _ BusClient = (*core.Bus)(nil)
}

func TestBusClientHookAndTrigger(t *testing.T) {
	bus := core.NewBus()
	var client BusClient = bus

	var got any
	_, err := client.Hook("data.create", func(ctx context.Context, payload any) error {
		got = payload
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, client.Trigger(context.Background(), "data.create", "payload"))
	assert.Equal(t, "payload", got)
}
