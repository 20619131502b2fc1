package framework

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// PluginState represents the current lifecycle state of a plugin.
type PluginState int32

const (
	StateUninitialized PluginState = iota
	StateInitializing
	StateReady
	StateNotReady
	StateStopping
	StateStopped
	StateFailed
)

// String returns a human-readable state name.
func (s PluginState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateNotReady:
		return "not-ready"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PluginBase provides a thread-safe ready/not-ready toggle that satisfies
// core.ReadySetter. Embed this into plugins to avoid hand-rolled readiness
// tracking.
type PluginBase struct {
	state     atomic.Int32
	name      atomic.Value // string
	domain    atomic.Value // string
	startedAt atomic.Value // time.Time
	stoppedAt atomic.Value // time.Time

	mu       sync.RWMutex
	lastErr  error
	metadata map[string]string
}

// NewPluginBase creates a new PluginBase with the given name and domain.
func NewPluginBase(name, domain string) *PluginBase {
	b := &PluginBase{metadata: make(map[string]string)}
	b.name.Store(name)
	b.domain.Store(domain)
	return b
}

// Name returns the plugin name.
func (b *PluginBase) Name() string {
	if v := b.name.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Domain returns the plugin domain.
func (b *PluginBase) Domain() string {
	if v := b.domain.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// State returns the current plugin state.
func (b *PluginBase) State() PluginState {
	return PluginState(b.state.Load())
}

// SetState atomically sets the plugin state.
func (b *PluginBase) SetState(state PluginState) {
	b.state.Store(int32(state))
}

// SetReady implements core.ReadySetter.
func (b *PluginBase) SetReady(ready bool, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ready {
		b.state.Store(int32(StateReady))
		b.lastErr = nil
		return
	}
	b.state.Store(int32(StateNotReady))
	if reason != "" {
		b.lastErr = fmt.Errorf("%s", reason)
	}
}

// MarkStarted records that the plugin has started.
func (b *PluginBase) MarkStarted() {
	b.startedAt.Store(time.Now())
	b.state.Store(int32(StateReady))
}

// MarkStopped records that the plugin has stopped.
func (b *PluginBase) MarkStopped() {
	b.stoppedAt.Store(time.Now())
	b.state.Store(int32(StateStopped))
}

// MarkFailed records that the plugin has failed with an error.
func (b *PluginBase) MarkFailed(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
	b.state.Store(int32(StateFailed))
}

// LastError returns the last recorded error.
func (b *PluginBase) LastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// StartedAt returns when the plugin started, or zero time if not started.
func (b *PluginBase) StartedAt() time.Time {
	if v := b.startedAt.Load(); v != nil {
		return v.(time.Time)
	}
	return time.Time{}
}

// Uptime returns how long the plugin has been running, or 0 if not started.
func (b *PluginBase) Uptime() time.Duration {
	started := b.StartedAt()
	if started.IsZero() {
		return 0
	}
	return time.Since(started)
}

// IsReady returns true if the plugin is in the ready state.
func (b *PluginBase) IsReady() bool {
	return b.State() == StateReady
}

// HealthCheck implements core.HealthChecker with a status derived from
// PluginState; plugins with richer health data should override it.
func (b *PluginBase) HealthCheck(ctx context.Context) error {
	_ = ctx
	state := b.State()
	if state == StateReady {
		return nil
	}
	if err := b.LastError(); err != nil {
		return err
	}
	return fmt.Errorf("%s", state)
}

// SetMetadata stores a key-value pair in the plugin metadata.
func (b *PluginBase) SetMetadata(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metadata == nil {
		b.metadata = make(map[string]string)
	}
	b.metadata[key] = value
}

// GetMetadata retrieves a metadata value by key.
func (b *PluginBase) GetMetadata(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.metadata[key]
	return v, ok
}
