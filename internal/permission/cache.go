package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is the per-(userId, object, action) result cache Engine.Check
// consults before evaluating. Two implementations are provided: an
// in-process TTLCache for single-node deployments, and a RedisCache for
// multi-process ones sharing the teacher's go-redis/redis/v8 dependency.
type Cache interface {
	Get(ctx context.Context, key string) (CheckResult, bool)
	Set(ctx context.Context, key string, result CheckResult, ttl time.Duration)
	// ClearUser evicts every cached entry for userID across all objects and
	// actions.
	ClearUser(ctx context.Context, userID string)
	// Clear evicts every cached entry, used on permission-set reload.
	Clear(ctx context.Context)
}

func cacheKey(userID, object string, action Action) string {
	return fmt.Sprintf("perm:%s:%s:%s", userID, object, action)
}

func userPrefix(userID string) string {
	return fmt.Sprintf("perm:%s:", userID)
}

// TTLCache is an in-process Cache backed by a mutex-guarded map, matching
// the rest of the kernel's in-memory registries. An expired entry is
// evicted lazily, when Get finds it.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewTTLCache creates an empty in-process cache.
func NewTTLCache() *TTLCache {
	return &TTLCache{entries: make(map[string]cacheEntry)}
}

func (c *TTLCache) Get(_ context.Context, key string) (CheckResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return CheckResult{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return CheckResult{}, false
	}
	return entry.result, true
}

func (c *TTLCache) Set(_ context.Context, key string, result CheckResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expiresAt: time.Now().Add(ttl)}
}

func (c *TTLCache) ClearUser(_ context.Context, userID string) {
	prefix := userPrefix(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *TTLCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// RedisCache is a Cache backed by go-redis/redis/v8, for deployments that
// run more than one ObjectOS process sharing a permission cache. The
// teacher's go.mod already carries go-redis/redis/v8 as a direct dependency.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing redis client. prefix namespaces keys so
// multiple ObjectOS deployments can share a Redis instance.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "objectos"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) namespacedKey(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) (CheckResult, bool) {
	raw, err := c.client.Get(ctx, c.namespacedKey(key)).Bytes()
	if err != nil {
		return CheckResult{}, false
	}
	var result CheckResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CheckResult{}, false
	}
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, result CheckResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.namespacedKey(key), raw, ttl)
}

func (c *RedisCache) ClearUser(ctx context.Context, userID string) {
	pattern := c.namespacedKey(userPrefix(userID)) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	pattern := c.namespacedKey("perm:") + "*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

var (
	_ Cache = (*TTLCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
