package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// GormAuditRepository implements vertical.AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append stores one audit record
func (r *GormAuditRepository) Append(ctx context.Context, record *vertical.ChangeAuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByTenant returns the most recent audit records for a tenant
func (r *GormAuditRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]vertical.ChangeAuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []vertical.ChangeAuditRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

var _ vertical.AuditRepository = (*GormAuditRepository)(nil)
