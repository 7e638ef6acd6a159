package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
)

// GormTenantRepository implements vertical.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*vertical.Tenant, error) {
	var tenant vertical.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// UpdateVertical writes the tenant's vertical and bumps updated_at
func (r *GormTenantRepository) UpdateVertical(ctx context.Context, id uuid.UUID, v vertical.Vertical) error {
	result := r.db.WithContext(ctx).
		Model(&vertical.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"vertical":   v,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateSchemaEnforcement writes the schema enforcement flag and bumps
// updated_at
func (r *GormTenantRepository) UpdateSchemaEnforcement(ctx context.Context, id uuid.UUID, enforced bool) error {
	result := r.db.WithContext(ctx).
		Model(&vertical.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"product_schema_enforced": enforced,
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ vertical.TenantRepository = (*GormTenantRepository)(nil)
