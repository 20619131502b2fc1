package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// GatePrefix marks topics whose handlers run as a gate: handlers fire in
// registration order and the first error aborts the remaining handlers and
// is returned to the caller. Topics without this prefix are observer
// topics: every handler runs regardless of earlier errors, and their
// errors are joined and returned after all have run.
//
// The prefix applies to the topic's operation segment, not the whole
// string: topics are namespaced as "<domain>.<operation>" (e.g.
// "data.beforeCreate", "job.failed"), so a gate topic is one whose segment
// after the final "." starts with GatePrefix.
const GatePrefix = "before"

// Handler is a callback registered against a bus topic.
type Handler func(ctx context.Context, payload any) error

// Bus is the ObjectOS event/hook bus. Unlike a typical Go pub/sub that fans
// out to subscribers concurrently, Trigger invokes handlers for a topic
// strictly in registration order on the calling goroutine: the kernel's
// single logical thread of control demands that a gate topic's first error
// actually stop the handlers that follow it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	seq      int
}

type registration struct {
	id      int
	handler Handler
}

// NewBus creates an empty event/hook bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]registration)}
}

// IsGateTopic reports whether a topic follows gate (abort-on-error) rather
// than observer (best-effort) semantics. Topics are namespaced
// "<domain>.<operation>" (data.beforeCreate, job.failed); the gate prefix is
// matched against the operation segment, after the final ".", so
// "data.beforeCreate" is a gate topic but "data.create" is not.
func IsGateTopic(topic string) bool {
	if i := strings.LastIndex(topic, "."); i >= 0 {
		topic = topic[i+1:]
	}
	return strings.HasPrefix(topic, GatePrefix)
}

// Hook registers a handler for a topic. Handlers for the same topic run in
// the order Hook was called.
func (b *Bus) Hook(topic string, handler Handler) (unsubscribe func(), err error) {
	topic = trimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("core: topic required")
	}
	if handler == nil {
		return nil, fmt.Errorf("core: handler is nil")
	}

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.handlers[topic] = append(b.handlers[topic], registration{id: id, handler: handler})
	b.mu.Unlock()

	return func() { b.unhook(topic, id) }, nil
}

func (b *Bus) unhook(topic string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[topic]
	for i, r := range regs {
		if r.id == id {
			b.handlers[topic] = append(regs[:i], regs[i+1:]...)
			return
		}
	}
}

// Trigger invokes every handler registered for topic, in registration order,
// on the calling goroutine. For a gate topic (IsGateTopic), the first
// handler error aborts the remaining handlers and is returned immediately.
// For an observer topic, every handler runs and errors are joined.
func (b *Bus) Trigger(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	regs := append([]registration{}, b.handlers[topic]...)
	b.mu.RUnlock()

	if len(regs) == 0 {
		return nil
	}

	gate := IsGateTopic(topic)
	var errs []string
	for _, r := range regs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.handler(ctx, payload); err != nil {
			if gate {
				return fmt.Errorf("core: hook %q aborted: %w", topic, err)
			}
			errs = append(errs, err.Error())
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("core: hook %q: %s", topic, strings.Join(errs, "; "))
}

// HandlerCount returns the number of handlers registered for a topic.
func (b *Bus) HandlerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Topics returns every topic with at least one registered handler, sorted.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.handlers))
	for topic, regs := range b.handlers {
		if len(regs) > 0 {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Clear removes every registered handler. Intended for tests.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]registration)
}
