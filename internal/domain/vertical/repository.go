package vertical

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantRepository defines persistence for the tenant's vertical state
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// UpdateVertical writes the tenant's vertical and bumps its
	// updated_at timestamp
	UpdateVertical(ctx context.Context, id uuid.UUID, v Vertical) error

	// UpdateSchemaEnforcement writes the product schema enforcement
	// flag and bumps updated_at
	UpdateSchemaEnforcement(ctx context.Context, id uuid.UUID, enforced bool) error
}

// SnapshotRepository defines persistence for rollback snapshots
type SnapshotRepository interface {
	// Create stores a new snapshot
	Create(ctx context.Context, snapshot *RollbackSnapshot) error

	// FindLatestActive returns the most recent snapshot for a tenant
	// whose expiry is at or after now, or nil when none exists
	FindLatestActive(ctx context.Context, tenantID uuid.UUID, now time.Time) (*RollbackSnapshot, error)

	// Delete removes a snapshot by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes all snapshots whose expiry is before now
	// and returns the number of rows removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditRepository defines persistence for the append-only change trail
type AuditRepository interface {
	// Append stores one audit record; records are never updated
	Append(ctx context.Context, record *ChangeAuditRecord) error

	// ListByTenant returns the most recent audit records for a tenant
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]ChangeAuditRecord, error)
}

// OverrideRepository defines persistence for tenant config overrides
type OverrideRepository interface {
	// FindByTenant returns the tenant's override, or nil when none exists
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*TenantOverride, error)

	// Upsert stores or replaces the tenant's override document
	Upsert(ctx context.Context, override *TenantOverride) error

	// DeleteByTenant removes the tenant's override; removing a missing
	// override is not an error
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
}

// AlertRepository defines persistence for best-effort change alerts
type AlertRepository interface {
	Create(ctx context.Context, alert *VerticalChangeAlert) error

	// ListByTenant returns the most recent alerts for a tenant
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]VerticalChangeAlert, error)
}

// TxRepositories exposes the repositories that participate in a single
// transaction
type TxRepositories interface {
	Tenants() TenantRepository
	Snapshots() SnapshotRepository
	Audits() AuditRepository
}

// UnitOfWork runs a function atomically: every repository operation
// issued through the provided TxRepositories either commits as a whole
// or rolls back as a whole, isolated from concurrent transactions on
// the same rows
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

// DataInspector gathers the read-only aggregate view of a tenant's
// data volume and open operational state used by the compatibility
// checker. Implementations must be safe for concurrent use.
type DataInspector interface {
	Inspect(ctx context.Context, tenantID, organizationID uuid.UUID) (*ActivitySnapshot, error)
}

// ScriptContext carries the tenant scope handed to vertical scripts
type ScriptContext struct {
	TenantID       uuid.UUID
	OrganizationID uuid.UUID
	Metadata       map[string]string
}

// ScriptRunner executes named activation/deactivation scripts and the
// per-vertical archival cleanup pass. The orchestrator treats these as
// opaque, potentially slow, potentially failing operations.
type ScriptRunner interface {
	// Run executes a single named script
	Run(ctx context.Context, script string, sctx ScriptContext) error

	// RunCleanup executes the archival cleanup pass for a vertical
	RunCleanup(ctx context.Context, v Vertical, sctx ScriptContext) error
}

// CacheEntry is the versioned unit stored in the shared cache tier
type CacheEntry struct {
	Version string         `json:"version"`
	Config  ResolvedConfig `json:"config"`
}

// SharedConfigCache is the distributed (cross-instance) cache tier for
// resolved configurations. All operations are best-effort: callers
// degrade to the authoritative source on error.
type SharedConfigCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*CacheEntry, error)
	Set(ctx context.Context, tenantID uuid.UUID, entry *CacheEntry) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
}
