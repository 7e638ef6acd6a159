package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/verticore/backend/internal/domain/vertical"
)

// unreachableClient points at a port nothing listens on, so every
// operation fails with a connection error
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisConfigCacheDegradesOnFailure(t *testing.T) {
	c := NewRedisConfigCache(unreachableClient(), WithOpTimeout(500*time.Millisecond))
	tenantID := uuid.New()

	// A failed read is a miss, never an error surfaced to the caller
	entry, err := c.Get(context.Background(), tenantID)
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.False(t, c.Available())

	// Degraded writes are swallowed
	err = c.Set(context.Background(), tenantID, &vertical.CacheEntry{Version: "general:1"})
	assert.NoError(t, err)

	// Inside the cooldown window reads short-circuit without dialing
	start := time.Now()
	entry, err = c.Get(context.Background(), tenantID)
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRedisConfigCacheDeleteAlwaysAttempted(t *testing.T) {
	c := NewRedisConfigCache(unreachableClient(), WithOpTimeout(500*time.Millisecond))
	tenantID := uuid.New()

	_, _ = c.Get(context.Background(), tenantID)
	assert.False(t, c.Available())

	// Purges report their failure so the caller can log it
	err := c.Delete(context.Background(), tenantID)
	assert.Error(t, err)
}
