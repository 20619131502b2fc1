package framework

import "context"

// BusClient is the event/hook surface exposed to a plugin context. Plugins
// depend on this interface rather than the concrete core.Bus so they can be
// tested with a fake.
type BusClient interface {
	Hook(topic string, handler func(ctx context.Context, payload any) error) (unsubscribe func(), err error)
	Trigger(ctx context.Context, topic string, payload any) error
}
