package vertical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
)

// LocalConfigCache is the process-local cache tier owned by the
// resolver
type LocalConfigCache interface {
	Get(tenantID uuid.UUID) *vertical.CacheEntry
	Set(tenantID uuid.UUID, entry vertical.CacheEntry)
	Delete(tenantID uuid.UUID)
}

// ConfigService resolves a tenant's effective vertical configuration.
// Reads go through two cache tiers before the authoritative source;
// the cached value is a pure memoization of persisted state, so
// freshness is maintained by explicit invalidation rather than TTLs.
type ConfigService struct {
	tenants   vertical.TenantRepository
	overrides vertical.OverrideRepository
	registry  vertical.Registry
	local     LocalConfigCache
	sharedC   vertical.SharedConfigCache
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewConfigService creates a new ConfigService
func NewConfigService(
	tenants vertical.TenantRepository,
	overrides vertical.OverrideRepository,
	registry vertical.Registry,
	local LocalConfigCache,
	sharedCache vertical.SharedConfigCache,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ConfigService {
	return &ConfigService{
		tenants:   tenants,
		overrides: overrides,
		registry:  registry,
		local:     local,
		sharedC:   sharedCache,
		publisher: publisher,
		logger:    logger,
	}
}

// GetConfig returns the tenant's effective configuration
func (s *ConfigService) GetConfig(ctx context.Context, tenantID uuid.UUID) (*vertical.ResolvedConfig, error) {
	if entry := s.local.Get(tenantID); entry != nil {
		return &entry.Config, nil
	}

	if s.sharedC != nil {
		entry, err := s.sharedC.Get(ctx, tenantID)
		if err == nil && entry != nil {
			s.local.Set(tenantID, *entry)
			return &entry.Config, nil
		}
	}

	entry, err := s.resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.local.Set(tenantID, *entry)
	if s.sharedC != nil {
		if err := s.sharedC.Set(ctx, tenantID, entry); err != nil {
			s.logger.Warn("shared cache population failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
	return &entry.Config, nil
}

// GetFeatures returns the tenant's effective feature map
func (s *ConfigService) GetFeatures(ctx context.Context, tenantID uuid.UUID) (map[string]bool, error) {
	config, err := s.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return config.Features, nil
}

// IsFeatureEnabled reports whether one feature is switched on for the
// tenant. Unknown features are off.
func (s *ConfigService) IsFeatureEnabled(ctx context.Context, tenantID uuid.UUID, feature string) (bool, error) {
	features, err := s.GetFeatures(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return features[feature], nil
}

// GetOverride returns the tenant's stored override, or nil when none
// exists
func (s *ConfigService) GetOverride(ctx context.Context, tenantID uuid.UUID) (*vertical.ConfigOverride, error) {
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, err
	}
	stored, err := s.overrides.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return stored.Parse()
}

// SetOverride stores the tenant's override document and purges the
// cached configuration so the next read reflects it
func (s *ConfigService) SetOverride(ctx context.Context, tenantID uuid.UUID, override *vertical.ConfigOverride) error {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	doc, err := vertical.NewTenantOverride(tenantID, tenant.OrganizationID, override)
	if err != nil {
		return err
	}
	if err := s.overrides.Upsert(ctx, doc); err != nil {
		return err
	}
	s.InvalidateCache(ctx, tenantID, &tenant.OrganizationID)
	return nil
}

// DeleteOverride removes the tenant's override and purges the cached
// configuration, restoring the vertical defaults
func (s *ConfigService) DeleteOverride(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := s.overrides.DeleteByTenant(ctx, tenantID); err != nil {
		return err
	}
	s.InvalidateCache(ctx, tenantID, &tenant.OrganizationID)
	return nil
}

// SetSchemaEnforcement toggles strict product schema validation for
// the tenant and purges the cached configuration
func (s *ConfigService) SetSchemaEnforcement(ctx context.Context, tenantID uuid.UUID, enforced bool) error {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := s.tenants.UpdateSchemaEnforcement(ctx, tenantID, enforced); err != nil {
		return err
	}
	s.InvalidateCache(ctx, tenantID, &tenant.OrganizationID)
	return nil
}

// InvalidateCache purges the tenant's configuration from both cache
// tiers and announces the invalidation. Safe to call when nothing is
// cached.
func (s *ConfigService) InvalidateCache(ctx context.Context, tenantID uuid.UUID, organizationID *uuid.UUID) {
	s.local.Delete(tenantID)
	if s.sharedC != nil {
		if err := s.sharedC.Delete(ctx, tenantID); err != nil {
			s.logger.Warn("shared cache purge failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
	if s.publisher != nil {
		event := vertical.NewConfigInvalidatedEvent(tenantID, organizationID)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish config invalidated event", zap.Error(err))
		}
	}
}

// InvalidateBatch purges a set of tenants
func (s *ConfigService) InvalidateBatch(ctx context.Context, tenantIDs []uuid.UUID) {
	for _, tenantID := range tenantIDs {
		s.InvalidateCache(ctx, tenantID, nil)
	}
}

// WarmupCache populates the cache for a set of tenants. One tenant's
// failure does not abort the rest.
func (s *ConfigService) WarmupCache(ctx context.Context, tenantIDs []uuid.UUID) {
	for _, tenantID := range tenantIDs {
		if _, err := s.GetConfig(ctx, tenantID); err != nil {
			s.logger.Warn("cache warmup failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
}

// resolve performs the authoritative read: registry defaults for the
// tenant's vertical, deep-merged with the tenant's stored override
func (s *ConfigService) resolve(ctx context.Context, tenantID uuid.UUID) (*vertical.CacheEntry, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var override *vertical.ConfigOverride
	stored, err := s.overrides.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		override, err = stored.Parse()
		if err != nil {
			return nil, err
		}
	}

	base := s.registry.Resolve(tenant.Vertical)
	merged := vertical.Merge(base, override)

	return &vertical.CacheEntry{
		Version: versionToken(tenant),
		Config: vertical.ResolvedConfig{
			Config:                merged,
			EnforcedProductSchema: tenant.ProductSchemaEnforced,
		},
	}, nil
}

// versionToken identifies one resolved state of a tenant's config.
// Any committed vertical change bumps the tenant's updated_at, so the
// token changes with it.
func versionToken(tenant *vertical.Tenant) string {
	return fmt.Sprintf("%s:%d", tenant.Vertical, tenant.UpdatedAt.UnixMilli())
}
