package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verticore/backend/internal/domain/vertical"
)

// GormOverrideRepository implements vertical.OverrideRepository using GORM
type GormOverrideRepository struct {
	db *gorm.DB
}

// NewGormOverrideRepository creates a new GormOverrideRepository
func NewGormOverrideRepository(db *gorm.DB) *GormOverrideRepository {
	return &GormOverrideRepository{db: db}
}

// FindByTenant returns the tenant's override, or nil when none exists
func (r *GormOverrideRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*vertical.TenantOverride, error) {
	var override vertical.TenantOverride
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

// Upsert stores or replaces the tenant's override document
func (r *GormOverrideRepository) Upsert(ctx context.Context, override *vertical.TenantOverride) error {
	override.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"organization_id", "config_json", "updated_at"}),
		}).
		Create(override).Error
}

// DeleteByTenant removes the tenant's override
func (r *GormOverrideRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&vertical.TenantOverride{}).Error
}

var _ vertical.OverrideRepository = (*GormOverrideRepository)(nil)
