package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/vertical"
)

// NoopSharedCache is the shared tier used when no Redis is configured.
// Every read misses and every write is discarded, so configuration is
// always resolved from the authoritative source.
type NoopSharedCache struct{}

var _ vertical.SharedConfigCache = NoopSharedCache{}

func (NoopSharedCache) Get(context.Context, uuid.UUID) (*vertical.CacheEntry, error) { return nil, nil }

func (NoopSharedCache) Set(context.Context, uuid.UUID, *vertical.CacheEntry) error { return nil }

func (NoopSharedCache) Delete(context.Context, uuid.UUID) error { return nil }
