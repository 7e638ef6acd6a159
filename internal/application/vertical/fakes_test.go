package vertical

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
)

// memStore is an in-memory stand-in for the persistence layer. Its
// transaction primitive serializes commits and restores the previous
// state when the callback fails, mirroring the atomicity the real
// unit of work provides.
type memStore struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	tenants   map[uuid.UUID]vertical.Tenant
	snapshots map[uuid.UUID]vertical.RollbackSnapshot
	audits    []vertical.ChangeAuditRecord
	overrides map[uuid.UUID]vertical.TenantOverride
	alerts    []vertical.VerticalChangeAlert
}

func newMemStore() *memStore {
	return &memStore{
		tenants:   make(map[uuid.UUID]vertical.Tenant),
		snapshots: make(map[uuid.UUID]vertical.RollbackSnapshot),
		overrides: make(map[uuid.UUID]vertical.TenantOverride),
	}
}

func (s *memStore) putTenant(t vertical.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *memStore) tenantVertical(id uuid.UUID) vertical.Vertical {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenants[id].Vertical
}

func (s *memStore) auditRecords() []vertical.ChangeAuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]vertical.ChangeAuditRecord(nil), s.audits...)
}

func (s *memStore) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func (s *memStore) clone() (map[uuid.UUID]vertical.Tenant, map[uuid.UUID]vertical.RollbackSnapshot, []vertical.ChangeAuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenants := make(map[uuid.UUID]vertical.Tenant, len(s.tenants))
	for k, v := range s.tenants {
		tenants[k] = v
	}
	snapshots := make(map[uuid.UUID]vertical.RollbackSnapshot, len(s.snapshots))
	for k, v := range s.snapshots {
		snapshots[k] = v
	}
	audits := append([]vertical.ChangeAuditRecord(nil), s.audits...)
	return tenants, snapshots, audits
}

func (s *memStore) restore(tenants map[uuid.UUID]vertical.Tenant, snapshots map[uuid.UUID]vertical.RollbackSnapshot, audits []vertical.ChangeAuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = tenants
	s.snapshots = snapshots
	s.audits = audits
}

type memTenantRepo struct{ store *memStore }

func (r *memTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*vertical.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenant, ok := r.store.tenants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := tenant
	return &copied, nil
}

func (r *memTenantRepo) UpdateVertical(ctx context.Context, id uuid.UUID, v vertical.Vertical) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenant, ok := r.store.tenants[id]
	if !ok {
		return shared.ErrNotFound
	}
	tenant.Vertical = v
	tenant.UpdatedAt = time.Now()
	r.store.tenants[id] = tenant
	return nil
}

func (r *memTenantRepo) UpdateSchemaEnforcement(ctx context.Context, id uuid.UUID, enforced bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenant, ok := r.store.tenants[id]
	if !ok {
		return shared.ErrNotFound
	}
	tenant.ProductSchemaEnforced = enforced
	tenant.UpdatedAt = time.Now()
	r.store.tenants[id] = tenant
	return nil
}

type memSnapshotRepo struct{ store *memStore }

func (r *memSnapshotRepo) Create(ctx context.Context, snapshot *vertical.RollbackSnapshot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.snapshots[snapshot.ID] = *snapshot
	return nil
}

func (r *memSnapshotRepo) FindLatestActive(ctx context.Context, tenantID uuid.UUID, now time.Time) (*vertical.RollbackSnapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var matches []vertical.RollbackSnapshot
	for _, snapshot := range r.store.snapshots {
		if snapshot.TenantID == tenantID && !snapshot.ExpiresAt.Before(now) {
			matches = append(matches, snapshot)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	latest := matches[0]
	return &latest, nil
}

func (r *memSnapshotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.snapshots, id)
	return nil
}

func (r *memSnapshotRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var removed int64
	for id, snapshot := range r.store.snapshots {
		if snapshot.ExpiresAt.Before(now) {
			delete(r.store.snapshots, id)
			removed++
		}
	}
	return removed, nil
}

type memAuditRepo struct{ store *memStore }

func (r *memAuditRepo) Append(ctx context.Context, record *vertical.ChangeAuditRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audits = append(r.store.audits, *record)
	return nil
}

func (r *memAuditRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]vertical.ChangeAuditRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var records []vertical.ChangeAuditRecord
	for i := len(r.store.audits) - 1; i >= 0 && len(records) < limit; i-- {
		if r.store.audits[i].TenantID == tenantID {
			records = append(records, r.store.audits[i])
		}
	}
	return records, nil
}

type memOverrideRepo struct{ store *memStore }

func (r *memOverrideRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*vertical.TenantOverride, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	override, ok := r.store.overrides[tenantID]
	if !ok {
		return nil, nil
	}
	copied := override
	return &copied, nil
}

func (r *memOverrideRepo) Upsert(ctx context.Context, override *vertical.TenantOverride) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.overrides[override.TenantID] = *override
	return nil
}

func (r *memOverrideRepo) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.overrides, tenantID)
	return nil
}

type memAlertRepo struct {
	store *memStore
	err   error
}

func (r *memAlertRepo) Create(ctx context.Context, alert *vertical.VerticalChangeAlert) error {
	if r.err != nil {
		return r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.alerts = append(r.store.alerts, *alert)
	return nil
}

func (r *memAlertRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]vertical.VerticalChangeAlert, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var alerts []vertical.VerticalChangeAlert
	for i := len(r.store.alerts) - 1; i >= 0 && len(alerts) < limit; i-- {
		if r.store.alerts[i].TenantID == tenantID {
			alerts = append(alerts, r.store.alerts[i])
		}
	}
	return alerts, nil
}

type memUnitOfWork struct{ store *memStore }

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos vertical.TxRepositories) error) error {
	u.store.txMu.Lock()
	defer u.store.txMu.Unlock()

	tenants, snapshots, audits := u.store.clone()
	err := fn(ctx, &memTxRepos{store: u.store})
	if err != nil {
		u.store.restore(tenants, snapshots, audits)
	}
	return err
}

type memTxRepos struct{ store *memStore }

func (r *memTxRepos) Tenants() vertical.TenantRepository     { return &memTenantRepo{store: r.store} }
func (r *memTxRepos) Snapshots() vertical.SnapshotRepository { return &memSnapshotRepo{store: r.store} }
func (r *memTxRepos) Audits() vertical.AuditRepository       { return &memAuditRepo{store: r.store} }

// fakeScriptRunner records every invocation and can be told to fail
// specific scripts
type fakeScriptRunner struct {
	mu       sync.Mutex
	ran      []string
	cleanups []vertical.Vertical
	failOn   map[string]error
}

func newFakeScriptRunner() *fakeScriptRunner {
	return &fakeScriptRunner{failOn: make(map[string]error)}
}

func (f *fakeScriptRunner) Run(ctx context.Context, script string, sctx vertical.ScriptContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, script)
	return f.failOn[script]
}

func (f *fakeScriptRunner) RunCleanup(ctx context.Context, v vertical.Vertical, sctx vertical.ScriptContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, v)
	return nil
}

func (f *fakeScriptRunner) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

// fakeSharedCache is an always-available shared tier
type fakeSharedCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]vertical.CacheEntry
	getErr  error
}

func newFakeSharedCache() *fakeSharedCache {
	return &fakeSharedCache{entries: make(map[uuid.UUID]vertical.CacheEntry)}
}

func (f *fakeSharedCache) Get(ctx context.Context, tenantID uuid.UUID) (*vertical.CacheEntry, error) {
	if f.getErr != nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[tenantID]
	if !ok {
		return nil, nil
	}
	copied := entry
	return &copied, nil
}

func (f *fakeSharedCache) Set(ctx context.Context, tenantID uuid.UUID, entry *vertical.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[tenantID] = *entry
	return nil
}

func (f *fakeSharedCache) Delete(ctx context.Context, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, tenantID)
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (f *fakePublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublisher) published() []shared.DomainEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]shared.DomainEvent(nil), f.events...)
}

// fakeInspector returns a canned activity snapshot
type fakeInspector struct {
	snapshot vertical.ActivitySnapshot
	err      error
}

func (f *fakeInspector) Inspect(ctx context.Context, tenantID, organizationID uuid.UUID) (*vertical.ActivitySnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	copied := f.snapshot
	return &copied, nil
}
