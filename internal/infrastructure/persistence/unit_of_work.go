package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// GormUnitOfWork implements vertical.UnitOfWork on top of GORM
// transactions. Every repository handed to the callback shares one
// transaction, so their writes commit or roll back together.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a single database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos vertical.TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txRepositories{tx: tx})
	})
}

type txRepositories struct {
	tx *gorm.DB
}

func (r *txRepositories) Tenants() vertical.TenantRepository {
	return NewGormTenantRepository(r.tx)
}

func (r *txRepositories) Snapshots() vertical.SnapshotRepository {
	return NewGormSnapshotRepository(r.tx)
}

func (r *txRepositories) Audits() vertical.AuditRepository {
	return NewGormAuditRepository(r.tx)
}

var _ vertical.UnitOfWork = (*GormUnitOfWork)(nil)
var _ vertical.TxRepositories = (*txRepositories)(nil)
