package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// GormSnapshotRepository implements vertical.SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Create stores a new snapshot
func (r *GormSnapshotRepository) Create(ctx context.Context, snapshot *vertical.RollbackSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindLatestActive returns the newest unexpired snapshot for a tenant,
// or nil when none exists
func (r *GormSnapshotRepository) FindLatestActive(ctx context.Context, tenantID uuid.UUID, now time.Time) (*vertical.RollbackSnapshot, error) {
	var snapshot vertical.RollbackSnapshot
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND expires_at >= ?", tenantID, now).
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// Delete removes a snapshot by ID
func (r *GormSnapshotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&vertical.RollbackSnapshot{}, "id = ?", id).Error
}

// DeleteExpired removes snapshots past their expiry and returns the
// number of rows removed
func (r *GormSnapshotRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&vertical.RollbackSnapshot{})
	return result.RowsAffected, result.Error
}

var _ vertical.SnapshotRepository = (*GormSnapshotRepository)(nil)
