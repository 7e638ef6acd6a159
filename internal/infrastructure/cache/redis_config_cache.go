package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/vertical"
	"github.com/verticore/backend/internal/infrastructure/config"
)

const configKeyPrefix = "vertical:config:"

// RedisConfigCache is the shared (cross-instance) tier for resolved
// vertical configurations. Entries are stored as JSON with a TTL
// safety net so stale data ages out even when an invalidation is lost.
//
// retryCooldown is how long the cache serves misses after a failure
// before probing Redis again
const retryCooldown = 30 * time.Second

// Every operation is bounded by a short timeout. When Redis becomes
// unreachable the cache flips to an unavailable state and serves
// misses without waiting on the connection. After a cooldown the next
// operation probes Redis again; success flips the tier back.
type RedisConfigCache struct {
	client      *redis.Client
	ttl         time.Duration
	opTimeout   time.Duration
	logger      *zap.Logger
	unavailable atomic.Bool
	lastFailure atomic.Int64
}

// RedisConfigCacheOption is a functional option for the cache
type RedisConfigCacheOption func(*RedisConfigCache)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RedisConfigCacheOption {
	return func(c *RedisConfigCache) {
		c.logger = logger
	}
}

// WithTTL sets the entry lifetime
func WithTTL(ttl time.Duration) RedisConfigCacheOption {
	return func(c *RedisConfigCache) {
		c.ttl = ttl
	}
}

// WithOpTimeout bounds each Redis round trip
func WithOpTimeout(timeout time.Duration) RedisConfigCacheOption {
	return func(c *RedisConfigCache) {
		c.opTimeout = timeout
	}
}

// NewRedisConfigCache creates a shared config cache on an existing client
func NewRedisConfigCache(client *redis.Client, opts ...RedisConfigCacheOption) *RedisConfigCache {
	cache := &RedisConfigCache{
		client:    client,
		ttl:       24 * time.Hour,
		opTimeout: time.Second,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// NewRedisClient creates a Redis client from configuration and verifies
// the connection
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Get returns the cached entry for a tenant, or nil on miss
func (c *RedisConfigCache) Get(ctx context.Context, tenantID uuid.UUID) (*vertical.CacheEntry, error) {
	if c.skip() {
		return nil, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(opCtx, c.key(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.markUnavailable(err)
		return nil, nil
	}
	c.markAvailable()

	var entry vertical.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is treated as a miss and purged
		c.logger.Warn("dropping corrupt shared cache entry",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		_ = c.Delete(ctx, tenantID)
		return nil, nil
	}
	return &entry, nil
}

// Set stores an entry with the configured TTL
func (c *RedisConfigCache) Set(ctx context.Context, tenantID uuid.UUID, entry *vertical.CacheEntry) error {
	if c.skip() {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(opCtx, c.key(tenantID), raw, c.ttl).Err(); err != nil {
		c.markUnavailable(err)
		return nil
	}
	c.markAvailable()
	return nil
}

// Delete removes a tenant's entry
func (c *RedisConfigCache) Delete(ctx context.Context, tenantID uuid.UUID) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(opCtx, c.key(tenantID)).Err(); err != nil {
		c.markUnavailable(err)
		return err
	}
	c.markAvailable()
	return nil
}

// Available reports whether the shared tier is currently reachable
func (c *RedisConfigCache) Available() bool {
	return !c.unavailable.Load()
}

func (c *RedisConfigCache) key(tenantID uuid.UUID) string {
	return configKeyPrefix + tenantID.String()
}

// skip reports whether the tier is degraded and still inside the
// cooldown window. Delete never skips: a purge must always be tried.
func (c *RedisConfigCache) skip() bool {
	if !c.unavailable.Load() {
		return false
	}
	return time.Since(time.Unix(0, c.lastFailure.Load())) < retryCooldown
}

func (c *RedisConfigCache) markUnavailable(err error) {
	c.lastFailure.Store(time.Now().UnixNano())
	if c.unavailable.CompareAndSwap(false, true) {
		c.logger.Warn("shared config cache unavailable, degrading to source reads",
			zap.Error(err),
		)
	}
}

func (c *RedisConfigCache) markAvailable() {
	if c.unavailable.CompareAndSwap(true, false) {
		c.logger.Info("shared config cache recovered")
	}
}

var _ vertical.SharedConfigCache = (*RedisConfigCache)(nil)
