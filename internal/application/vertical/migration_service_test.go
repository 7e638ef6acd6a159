package vertical

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
	"github.com/verticore/backend/internal/infrastructure/cache"
)

type migrationHarness struct {
	store     *memStore
	scripts   *fakeScriptRunner
	publisher *fakePublisher
	shared    *fakeSharedCache
	resolver  *ConfigService
	service   *MigrationService
	tenant    vertical.Tenant
}

func newMigrationHarness(t *testing.T, start vertical.Vertical) *migrationHarness {
	t.Helper()

	store := newMemStore()
	tenant, err := vertical.NewTenant(uuid.New(), "Acme")
	require.NoError(t, err)
	tenant.Vertical = start
	store.putTenant(*tenant)

	scripts := newFakeScriptRunner()
	publisher := &fakePublisher{}
	sharedCache := newFakeSharedCache()
	registry := vertical.NewStaticRegistry()

	resolver := NewConfigService(
		&memTenantRepo{store: store},
		&memOverrideRepo{store: store},
		registry,
		cache.NewLocalConfigCache(),
		sharedCache,
		publisher,
		zap.NewNop(),
	)

	service := NewMigrationService(
		&memUnitOfWork{store: store},
		&memTenantRepo{store: store},
		&memSnapshotRepo{store: store},
		registry,
		scripts,
		resolver,
		publisher,
		zap.NewNop(),
	)

	return &migrationHarness{
		store:     store,
		scripts:   scripts,
		publisher: publisher,
		shared:    sharedCache,
		resolver:  resolver,
		service:   service,
		tenant:    *tenant,
	}
}

func changeParams(h *migrationHarness, from, to vertical.Vertical) ChangeVerticalParams {
	return ChangeVerticalParams{
		TenantID:     h.tenant.ID,
		ActorID:      uuid.New(),
		FromVertical: from,
		ToVertical:   to,
		Warnings:     []string{"enabled modules detected"},
		Reason:       "seasonal switch",
	}
}

func TestChangeVerticalSuccess(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)

	err := h.service.ChangeVertical(context.Background(), changeParams(h, vertical.General, vertical.Retail))
	require.NoError(t, err)

	assert.Equal(t, vertical.Retail, h.store.tenantVertical(h.tenant.ID))

	// Retail activation scripts ran in declared order
	assert.Equal(t, []string{"create_retail_catalogs", "setup_pos_stations", "initialize_barcode_system"}, h.scripts.scripts())
	assert.Equal(t, []vertical.Vertical{vertical.General}, h.scripts.cleanups)

	// Snapshot and success audit committed together with the vertical
	assert.Equal(t, 1, h.store.snapshotCount())
	audits := h.store.auditRecords()
	require.Len(t, audits, 1)
	assert.True(t, audits[0].Success)
	assert.Equal(t, vertical.General, audits[0].OldVertical)
	assert.Equal(t, vertical.Retail, audits[0].NewVertical)
	assert.Equal(t, "seasonal switch", audits[0].Reason)

	// Invalidation and change announcement follow the commit
	types := make([]string, 0)
	for _, event := range h.publisher.published() {
		types = append(types, event.EventType())
	}
	assert.Contains(t, types, vertical.EventTypeConfigInvalidated)
	assert.Contains(t, types, vertical.EventTypeVerticalChanged)
}

func TestChangeVerticalRequiresTenantID(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)

	params := changeParams(h, vertical.General, vertical.Retail)
	params.TenantID = uuid.Nil
	err := h.service.ChangeVertical(context.Background(), params)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)
}

func TestChangeVerticalUnknownTenant(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)

	params := changeParams(h, vertical.General, vertical.Retail)
	params.TenantID = uuid.New()
	err := h.service.ChangeVertical(context.Background(), params)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestChangeVerticalConflictWhenVerticalMoved(t *testing.T) {
	h := newMigrationHarness(t, vertical.Services)

	// Caller believes the tenant is still on general
	err := h.service.ChangeVertical(context.Background(), changeParams(h, vertical.General, vertical.Retail))

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)
	assert.Equal(t, vertical.Services, h.store.tenantVertical(h.tenant.ID))
	assert.Equal(t, 0, h.store.snapshotCount())
	assert.Empty(t, h.store.auditRecords())
}

func TestChangeVerticalConcurrentCallsExactlyOneWins(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)

	var wg sync.WaitGroup
	results := make([]error, 2)
	targets := []vertical.Vertical{vertical.Retail, vertical.Restaurants}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.service.ChangeVertical(context.Background(), changeParams(h, vertical.General, targets[i]))
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	var winner int
	for i, err := range results {
		if err == nil {
			successes++
			winner = i
			continue
		}
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, targets[winner], h.store.tenantVertical(h.tenant.ID))
}

func TestChangeVerticalCompensatesOnActivationFailure(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)
	activationErr := errors.New("pos stations table unavailable")
	h.scripts.failOn["setup_pos_stations"] = activationErr

	err := h.service.ChangeVertical(context.Background(), changeParams(h, vertical.General, vertical.Retail))

	// The original activation error surfaces, not any compensation error
	assert.ErrorIs(t, err, activationErr)

	// The vertical is back where it started
	assert.Equal(t, vertical.General, h.store.tenantVertical(h.tenant.ID))

	// Exactly two audits: the forward commit and the compensation
	audits := h.store.auditRecords()
	require.Len(t, audits, 2)
	assert.True(t, audits[0].Success)
	assert.Equal(t, vertical.General, audits[0].OldVertical)
	assert.Equal(t, vertical.Retail, audits[0].NewVertical)
	assert.False(t, audits[1].Success)
	assert.Equal(t, vertical.Retail, audits[1].OldVertical)
	assert.Equal(t, vertical.General, audits[1].NewVertical)

	// No change announcement for a compensated migration
	for _, event := range h.publisher.published() {
		assert.NotEqual(t, vertical.EventTypeVerticalChanged, event.EventType())
	}
}

func TestRollbackRoundTrip(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)
	actorID := uuid.New()

	require.NoError(t, h.service.ChangeVertical(context.Background(), changeParams(h, vertical.General, vertical.Retail)))
	require.Equal(t, 1, h.store.snapshotCount())

	restored, err := h.service.Rollback(context.Background(), h.tenant.ID, actorID)
	require.NoError(t, err)

	assert.Equal(t, vertical.General, restored)
	assert.Equal(t, vertical.General, h.store.tenantVertical(h.tenant.ID))

	// The consumed snapshot is gone; a second rollback has nothing left
	assert.Equal(t, 0, h.store.snapshotCount())
	_, err = h.service.Rollback(context.Background(), h.tenant.ID, actorID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SNAPSHOT_NOT_FOUND", domainErr.Code)
}

func TestRollbackIgnoresExpiredSnapshot(t *testing.T) {
	h := newMigrationHarness(t, vertical.Retail)

	snapshot := vertical.NewRollbackSnapshot(h.tenant.ID, h.tenant.OrganizationID, vertical.General, nil, "old move")
	snapshot.ExpiresAt = snapshot.CreatedAt.Add(-time.Hour)
	require.NoError(t, (&memSnapshotRepo{store: h.store}).Create(context.Background(), snapshot))

	_, err := h.service.Rollback(context.Background(), h.tenant.ID, uuid.New())

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SNAPSHOT_NOT_FOUND", domainErr.Code)
	assert.Equal(t, vertical.Retail, h.store.tenantVertical(h.tenant.ID))
}

func TestRollbackAuditsWithRollbackReason(t *testing.T) {
	h := newMigrationHarness(t, vertical.General)

	require.NoError(t, h.service.ChangeVertical(context.Background(), changeParams(h, vertical.General, vertical.Services)))
	_, err := h.service.Rollback(context.Background(), h.tenant.ID, uuid.New())
	require.NoError(t, err)

	audits := h.store.auditRecords()
	require.Len(t, audits, 2)
	assert.Equal(t, "rollback", audits[1].Reason)
	assert.Equal(t, vertical.Services, audits[1].OldVertical)
	assert.Equal(t, vertical.General, audits[1].NewVertical)
	assert.True(t, audits[1].Success)
}
