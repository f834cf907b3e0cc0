package tenants

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/observability"
)

// Cache layers an in-process LRU (L1) and Redis (L2) in front of the tenant
// store. Only tenant records pass through it; memberships and permissions
// are always read fresh so revocations take effect on the next request.
type Cache struct {
	store   *Store
	local   *lru.Cache[int64, *auth.Tenant]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// CacheConfig holds tenant cache tuning
type CacheConfig struct {
	LocalSize int
	TTL       time.Duration
}

// NewCache creates a layered tenant cache. The redis client may be nil, in
// which case only the local layer is used.
func NewCache(store *Store, redisClient *redis.Client, config CacheConfig, metrics *observability.Metrics) (*Cache, error) {
	if config.LocalSize <= 0 {
		config.LocalSize = 1024
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}

	local, err := lru.New[int64, *auth.Tenant](config.LocalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &Cache{
		store:   store,
		local:   local,
		redis:   redisClient,
		ttl:     config.TTL,
		metrics: metrics,
	}, nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("tenant:%d", id)
}

// GetTenant reads through the cache layers, falling back to the store
func (c *Cache) GetTenant(ctx context.Context, id int64) (*auth.Tenant, error) {
	if tenant, ok := c.local.Get(id); ok {
		c.hit("local")
		return tenant, nil
	}
	c.miss("local")

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey(id)).Result()
		if err == nil {
			var tenant auth.Tenant
			if err := json.Unmarshal([]byte(cached), &tenant); err == nil {
				c.hit("redis")
				c.local.Add(id, &tenant)
				return &tenant, nil
			}
		}
		c.miss("redis")
	}

	tenant, err := c.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	c.local.Add(id, tenant)
	if c.redis != nil {
		if data, err := json.Marshal(tenant); err == nil {
			// Best effort; a cache write failure never fails the read
			c.redis.Set(ctx, cacheKey(id), data, c.ttl)
		}
	}
	return tenant, nil
}

// UpdateTenant writes through to the store and invalidates both layers
func (c *Cache) UpdateTenant(ctx context.Context, tenant *auth.Tenant) error {
	if err := c.store.UpdateTenant(ctx, tenant); err != nil {
		return err
	}
	c.Invalidate(ctx, tenant.ID)
	return nil
}

// Invalidate drops a tenant from both cache layers
func (c *Cache) Invalidate(ctx context.Context, id int64) {
	c.local.Remove(id)
	if c.redis != nil {
		c.redis.Del(ctx, cacheKey(id))
	}
}

func (c *Cache) hit(layer string) {
	if c.metrics != nil {
		c.metrics.TenantCacheHitsTotal.WithLabelValues(layer).Inc()
	}
}

func (c *Cache) miss(layer string) {
	if c.metrics != nil {
		c.metrics.TenantCacheMissesTotal.WithLabelValues(layer).Inc()
	}
}
