// Package framework provides PluginContext, which gives a plugin unified
// access to system resources, services, and the event/hook bus without
// depending on the concrete kernel package. core.Plugin.Init receives a
// core.Kernel, not a PluginContext.
package framework

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// SystemService names a kernel-provided resource retrievable via
// PluginContext.GetSystemService.
type SystemService string

const (
	SystemServiceBus        SystemService = "bus"
	SystemServiceRegistry   SystemService = "registry"
	SystemServicePermission SystemService = "permission"
	SystemServiceConfig     SystemService = "config"
	SystemServiceLogger     SystemService = "logger"
	SystemServiceMetrics    SystemService = "metrics"
)

// PluginContext bundles the Go context, a scoped logger, the bus client, and a config lookup, mirroring
// the unified access pattern of a host-OS context object.
type PluginContext interface {
	Context() context.Context
	PluginName() string
	Logger() *logrus.Entry
	GetSystemService(name SystemService) any
	GetBus() BusClient
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetConfig() map[string]any
}

// BaseContext is the default PluginContext implementation.
type BaseContext struct {
	ctx            context.Context
	pluginName     string
	log            *logrus.Entry
	systemServices map[SystemService]any
	config         map[string]any

	mu sync.RWMutex
}

// BaseContextConfig configures a new BaseContext.
type BaseContextConfig struct {
	Ctx        context.Context
	PluginName string
	Logger     *logrus.Entry
	Config     map[string]any
}

// NewBaseContext builds a BaseContext from the given configuration.
func NewBaseContext(cfg BaseContextConfig) *BaseContext {
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Config == nil {
		cfg.Config = make(map[string]any)
	}
	return &BaseContext{
		ctx:            cfg.Ctx,
		pluginName:     cfg.PluginName,
		log:            cfg.Logger.WithField("plugin", cfg.PluginName),
		systemServices: make(map[SystemService]any),
		config:         cfg.Config,
	}
}

func (c *BaseContext) Context() context.Context { return c.ctx }
func (c *BaseContext) PluginName() string       { return c.pluginName }
func (c *BaseContext) Logger() *logrus.Entry    { return c.log }

// SetSystemService registers a kernel resource under name.
func (c *BaseContext) SetSystemService(name SystemService, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemServices[name] = svc
}

func (c *BaseContext) GetSystemService(name SystemService) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemServices[name]
}

func (c *BaseContext) GetBus() BusClient {
	if bus, ok := c.GetSystemService(SystemServiceBus).(BusClient); ok {
		return bus
	}
	return nil
}

func (c *BaseContext) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.config[key].(string); ok {
		return v
	}
	return ""
}

func (c *BaseContext) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch v := c.config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (c *BaseContext) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.config[key].(bool); ok {
		return v
	}
	return false
}

func (c *BaseContext) GetConfig() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.config))
	for k, v := range c.config {
		out[k] = v
	}
	return out
}

// WithContext returns a copy of c using the given Go context, sharing the
// same underlying service/config maps.
func (c *BaseContext) WithContext(ctx context.Context) *BaseContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &BaseContext{
		ctx:            ctx,
		pluginName:     c.pluginName,
		log:            c.log,
		systemServices: c.systemServices,
		config:         c.config,
	}
}

var _ PluginContext = (*BaseContext)(nil)
