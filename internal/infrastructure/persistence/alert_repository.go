package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// GormAlertRepository implements vertical.AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Create stores a change alert
func (r *GormAlertRepository) Create(ctx context.Context, alert *vertical.VerticalChangeAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// ListByTenant returns the most recent alerts for a tenant
func (r *GormAlertRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]vertical.VerticalChangeAlert, error) {
	var alerts []vertical.VerticalChangeAlert
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

var _ vertical.AlertRepository = (*GormAlertRepository)(nil)
