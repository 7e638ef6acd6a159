package vertical

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
)

const compensationReason = "auto-rollback: activation scripts failed"

// ChangeVerticalParams carries one migration request
type ChangeVerticalParams struct {
	TenantID     uuid.UUID
	ActorID      uuid.UUID
	FromVertical vertical.Vertical
	ToVertical   vertical.Vertical
	Warnings     []string
	Reason       string
}

// MigrationService orchestrates vertical transitions. A transition
// runs in phases: deactivate the source vertical's scripts, archive
// its exclusive data, commit the new vertical atomically with a
// rollback snapshot and an audit row, then activate the target
// vertical. Only the commit runs inside a transaction; the slow
// script phases run outside any lock, and a failed activation is
// compensated by reverting the committed vertical.
type MigrationService struct {
	uow       vertical.UnitOfWork
	tenants   vertical.TenantRepository
	snapshots vertical.SnapshotRepository
	registry  vertical.Registry
	scripts   vertical.ScriptRunner
	resolver  *ConfigService
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// MigrationServiceOption is a functional option for the service
type MigrationServiceOption func(*MigrationService)

// WithClock overrides the time source
func WithClock(now func() time.Time) MigrationServiceOption {
	return func(s *MigrationService) {
		s.now = now
	}
}

// NewMigrationService creates a new MigrationService
func NewMigrationService(
	uow vertical.UnitOfWork,
	tenants vertical.TenantRepository,
	snapshots vertical.SnapshotRepository,
	registry vertical.Registry,
	scripts vertical.ScriptRunner,
	resolver *ConfigService,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...MigrationServiceOption,
) *MigrationService {
	s := &MigrationService{
		uow:       uow,
		tenants:   tenants,
		snapshots: snapshots,
		registry:  registry,
		scripts:   scripts,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChangeVertical migrates a tenant from one vertical to another
func (s *MigrationService) ChangeVertical(ctx context.Context, params ChangeVerticalParams) error {
	if params.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "A tenant ID is required to change the vertical.")
	}

	tenant, err := s.tenants.FindByID(ctx, params.TenantID)
	if err != nil {
		return err
	}

	log := s.logger.With(
		zap.String("tenant_id", params.TenantID.String()),
		zap.String("from", params.FromVertical.String()),
		zap.String("to", params.ToVertical.String()),
	)
	log.Info("vertical migration started")

	sctx := vertical.ScriptContext{
		TenantID:       tenant.ID,
		OrganizationID: tenant.OrganizationID,
		Metadata:       map[string]string{"reason": reasonOrDefault(params.Reason)},
	}

	// Phase 1: deactivate the source vertical
	if err := s.runScripts(ctx, s.scriptsFor(params.FromVertical, phaseDeactivate), sctx); err != nil {
		return err
	}

	// Phase 2: archive the source vertical's exclusive data. One-way:
	// a later compensation does not restore what is archived here.
	if err := s.scripts.RunCleanup(ctx, params.FromVertical, sctx); err != nil {
		return err
	}

	// Phase 3: commit vertical + snapshot + audit atomically
	if err := s.commitChange(ctx, tenant, params); err != nil {
		return err
	}

	// Phase 4: activate the target vertical; compensate on failure
	if err := s.activate(ctx, params.ToVertical, sctx); err != nil {
		s.compensate(ctx, tenant, params.ToVertical, params.FromVertical, params.ActorID, sctx)
		return err
	}

	s.settle(ctx, tenant, params.FromVertical, params.ToVertical)
	log.Info("vertical migration completed")
	return nil
}

// Rollback restores the tenant's previous vertical from its most
// recent unexpired snapshot and consumes the snapshot. Returns the
// restored vertical.
func (s *MigrationService) Rollback(ctx context.Context, tenantID, actorID uuid.UUID) (vertical.Vertical, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	snapshot, err := s.snapshots.FindLatestActive(ctx, tenantID, s.now())
	if err != nil {
		return "", err
	}
	if snapshot == nil {
		return "", shared.NewDomainError("SNAPSHOT_NOT_FOUND",
			"No snapshots available for rollback. The snapshot may have expired (7 days).")
	}

	target, err := snapshot.RollbackTarget()
	if err != nil {
		return "", err
	}
	current := tenant.Vertical

	log := s.logger.With(
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", current.String()),
		zap.String("to", target.String()),
	)
	log.Info("vertical rollback started")

	sctx := vertical.ScriptContext{
		TenantID:       tenant.ID,
		OrganizationID: tenant.OrganizationID,
		Metadata:       map[string]string{"reason": "rollback"},
	}

	if err := s.runScripts(ctx, s.scriptsFor(current, phaseDeactivate), sctx); err != nil {
		return "", err
	}
	if err := s.scripts.RunCleanup(ctx, current, sctx); err != nil {
		return "", err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, repos vertical.TxRepositories) error {
		fresh, err := repos.Tenants().FindByID(ctx, tenant.ID)
		if err != nil {
			return err
		}
		if fresh.Vertical != current {
			return concurrencyConflict()
		}

		if err := repos.Tenants().UpdateVertical(ctx, tenant.ID, target); err != nil {
			return err
		}
		audit := vertical.NewChangeAuditRecord(
			tenant.ID, tenant.OrganizationID, actorID,
			current, target, "rollback", nil, true,
		)
		if err := repos.Audits().Append(ctx, audit); err != nil {
			return err
		}
		return repos.Snapshots().Delete(ctx, snapshot.ID)
	})
	if err != nil {
		return "", err
	}

	if err := s.activate(ctx, target, sctx); err != nil {
		s.compensate(ctx, tenant, target, current, actorID, sctx)
		return "", err
	}

	s.settle(ctx, tenant, current, target)
	log.Info("vertical rollback completed")
	return target, nil
}

// commitChange is the Committing phase: inside one transaction the
// current vertical is re-read and compared against the expected value,
// then the new vertical, the rollback snapshot, and the audit record
// are written together.
func (s *MigrationService) commitChange(ctx context.Context, tenant *vertical.Tenant, params ChangeVerticalParams) error {
	return s.uow.Execute(ctx, func(ctx context.Context, repos vertical.TxRepositories) error {
		fresh, err := repos.Tenants().FindByID(ctx, tenant.ID)
		if err != nil {
			return err
		}
		if fresh.Vertical != params.FromVertical {
			return concurrencyConflict()
		}

		if err := repos.Tenants().UpdateVertical(ctx, tenant.ID, params.ToVertical); err != nil {
			return err
		}

		snapshot := vertical.NewRollbackSnapshot(
			tenant.ID, tenant.OrganizationID,
			params.FromVertical, params.Warnings, params.Reason,
		)
		if err := repos.Snapshots().Create(ctx, snapshot); err != nil {
			return err
		}

		audit := vertical.NewChangeAuditRecord(
			tenant.ID, tenant.OrganizationID, params.ActorID,
			params.FromVertical, params.ToVertical, params.Reason, params.Warnings, true,
		)
		return repos.Audits().Append(ctx, audit)
	})
}

// activate runs the target vertical's activation scripts followed by
// its declared data transformations, in order
func (s *MigrationService) activate(ctx context.Context, target vertical.Vertical, sctx vertical.ScriptContext) error {
	if err := s.runScripts(ctx, s.scriptsFor(target, phaseActivate), sctx); err != nil {
		return err
	}
	config := s.registry.Resolve(target)
	for _, transformation := range config.Migrations.DataTransformations {
		if err := s.scripts.Run(ctx, transformation.Transformation, sctx); err != nil {
			return err
		}
	}
	return nil
}

// compensate reverts a committed vertical after a failed activation.
// The revert and its failure audit commit together; the target
// vertical's deactivation scripts run best-effort afterwards. Errors
// here are logged, never returned: the caller surfaces the original
// activation error.
func (s *MigrationService) compensate(ctx context.Context, tenant *vertical.Tenant, failed, restore vertical.Vertical, actorID uuid.UUID, sctx vertical.ScriptContext) {
	err := s.uow.Execute(ctx, func(ctx context.Context, repos vertical.TxRepositories) error {
		if err := repos.Tenants().UpdateVertical(ctx, tenant.ID, restore); err != nil {
			return err
		}
		audit := vertical.NewChangeAuditRecord(
			tenant.ID, tenant.OrganizationID, actorID,
			failed, restore, compensationReason, nil, false,
		)
		return repos.Audits().Append(ctx, audit)
	})
	if err != nil {
		s.logger.Error("compensation transaction failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
	}

	if err := s.runScripts(ctx, s.scriptsFor(failed, phaseDeactivate), sctx); err != nil {
		s.logger.Warn("best-effort deactivation after compensation failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
	}
}

// settle invalidates the tenant's cached configuration and announces
// the change. Both are downstream of a committed, correct state and
// must never fail the migration.
func (s *MigrationService) settle(ctx context.Context, tenant *vertical.Tenant, previous, next vertical.Vertical) {
	if s.resolver != nil {
		s.resolver.InvalidateCache(ctx, tenant.ID, &tenant.OrganizationID)
	}
	if s.publisher != nil {
		event := vertical.NewChangedEvent(tenant.ID, tenant.OrganizationID, previous, next)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish vertical changed event", zap.Error(err))
		}
	}
}

type scriptPhase int

const (
	phaseActivate scriptPhase = iota
	phaseDeactivate
)

func (s *MigrationService) scriptsFor(v vertical.Vertical, phase scriptPhase) []string {
	config := s.registry.Resolve(v)
	if phase == phaseActivate {
		return config.Migrations.OnActivate
	}
	return config.Migrations.OnDeactivate
}

func (s *MigrationService) runScripts(ctx context.Context, names []string, sctx vertical.ScriptContext) error {
	for _, name := range names {
		if err := s.scripts.Run(ctx, name, sctx); err != nil {
			return err
		}
	}
	return nil
}

func concurrencyConflict() error {
	return shared.NewDomainError("CONCURRENCY_CONFLICT",
		"The vertical was modified by another user. Reload the page and try again.")
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "vertical_migration"
	}
	return reason
}
