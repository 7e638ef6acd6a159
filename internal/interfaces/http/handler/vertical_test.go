package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appvertical "github.com/verticore/backend/internal/application/vertical"
	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
	"github.com/verticore/backend/internal/infrastructure/cache"
	"github.com/verticore/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubState backs all repository stubs for a single test server
type stubState struct {
	mu        sync.Mutex
	tenants   map[uuid.UUID]vertical.Tenant
	snapshots []vertical.RollbackSnapshot
	audits    []vertical.ChangeAuditRecord
	overrides map[uuid.UUID]vertical.TenantOverride
	alerts    []vertical.VerticalChangeAlert
}

type stubTenantRepo struct{ state *stubState }

func (r *stubTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*vertical.Tenant, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	tenant, ok := r.state.tenants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := tenant
	return &copied, nil
}

func (r *stubTenantRepo) UpdateVertical(_ context.Context, id uuid.UUID, v vertical.Vertical) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	tenant, ok := r.state.tenants[id]
	if !ok {
		return shared.ErrNotFound
	}
	tenant.Vertical = v
	tenant.UpdatedAt = time.Now()
	r.state.tenants[id] = tenant
	return nil
}

func (r *stubTenantRepo) UpdateSchemaEnforcement(_ context.Context, id uuid.UUID, enforced bool) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	tenant, ok := r.state.tenants[id]
	if !ok {
		return shared.ErrNotFound
	}
	tenant.ProductSchemaEnforced = enforced
	tenant.UpdatedAt = time.Now()
	r.state.tenants[id] = tenant
	return nil
}

type stubSnapshotRepo struct{ state *stubState }

func (r *stubSnapshotRepo) Create(_ context.Context, snapshot *vertical.RollbackSnapshot) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.snapshots = append(r.state.snapshots, *snapshot)
	return nil
}

func (r *stubSnapshotRepo) FindLatestActive(_ context.Context, tenantID uuid.UUID, now time.Time) (*vertical.RollbackSnapshot, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var latest *vertical.RollbackSnapshot
	for i := range r.state.snapshots {
		s := r.state.snapshots[i]
		if s.TenantID != tenantID || s.ExpiresAt.Before(now) {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			copied := s
			latest = &copied
		}
	}
	return latest, nil
}

func (r *stubSnapshotRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	kept := r.state.snapshots[:0]
	for _, s := range r.state.snapshots {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	r.state.snapshots = kept
	return nil
}

func (r *stubSnapshotRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type stubAuditRepo struct{ state *stubState }

func (r *stubAuditRepo) Append(_ context.Context, record *vertical.ChangeAuditRecord) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.audits = append(r.state.audits, *record)
	return nil
}

func (r *stubAuditRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]vertical.ChangeAuditRecord, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	records := make([]vertical.ChangeAuditRecord, 0)
	for i := len(r.state.audits) - 1; i >= 0 && len(records) < limit; i-- {
		if r.state.audits[i].TenantID == tenantID {
			records = append(records, r.state.audits[i])
		}
	}
	return records, nil
}

type stubOverrideRepo struct{ state *stubState }

func (r *stubOverrideRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) (*vertical.TenantOverride, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	override, ok := r.state.overrides[tenantID]
	if !ok {
		return nil, nil
	}
	copied := override
	return &copied, nil
}

func (r *stubOverrideRepo) Upsert(_ context.Context, override *vertical.TenantOverride) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.overrides[override.TenantID] = *override
	return nil
}

func (r *stubOverrideRepo) DeleteByTenant(_ context.Context, tenantID uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	delete(r.state.overrides, tenantID)
	return nil
}

type stubAlertRepo struct{ state *stubState }

func (r *stubAlertRepo) Create(_ context.Context, alert *vertical.VerticalChangeAlert) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.alerts = append(r.state.alerts, *alert)
	return nil
}

func (r *stubAlertRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]vertical.VerticalChangeAlert, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	alerts := make([]vertical.VerticalChangeAlert, 0)
	for i := len(r.state.alerts) - 1; i >= 0 && len(alerts) < limit; i-- {
		if r.state.alerts[i].TenantID == tenantID {
			alerts = append(alerts, r.state.alerts[i])
		}
	}
	return alerts, nil
}

type stubTxRepos struct{ state *stubState }

func (r stubTxRepos) Tenants() vertical.TenantRepository    { return &stubTenantRepo{state: r.state} }
func (r stubTxRepos) Snapshots() vertical.SnapshotRepository { return &stubSnapshotRepo{state: r.state} }
func (r stubTxRepos) Audits() vertical.AuditRepository      { return &stubAuditRepo{state: r.state} }

type stubUnitOfWork struct{ state *stubState }

func (u *stubUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos vertical.TxRepositories) error) error {
	return fn(ctx, stubTxRepos{state: u.state})
}

type stubScriptRunner struct{}

func (stubScriptRunner) Run(context.Context, string, vertical.ScriptContext) error { return nil }
func (stubScriptRunner) RunCleanup(context.Context, vertical.Vertical, vertical.ScriptContext) error {
	return nil
}

type stubSharedCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*vertical.CacheEntry
}

func (c *stubSharedCache) Get(_ context.Context, tenantID uuid.UUID) (*vertical.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[tenantID], nil
}

func (c *stubSharedCache) Set(_ context.Context, tenantID uuid.UUID, entry *vertical.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = entry
	return nil
}

func (c *stubSharedCache) Delete(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

type stubInspector struct{ snapshot vertical.ActivitySnapshot }

func (i *stubInspector) Inspect(context.Context, uuid.UUID, uuid.UUID) (*vertical.ActivitySnapshot, error) {
	copied := i.snapshot
	return &copied, nil
}

type testServer struct {
	engine *gin.Engine
	state  *stubState
	tenant vertical.Tenant
}

func newTestServer(t *testing.T, start vertical.Vertical) *testServer {
	t.Helper()

	state := &stubState{
		tenants:   make(map[uuid.UUID]vertical.Tenant),
		overrides: make(map[uuid.UUID]vertical.TenantOverride),
	}
	tenant, err := vertical.NewTenant(uuid.New(), "Acme")
	require.NoError(t, err)
	tenant.Vertical = start
	state.tenants[tenant.ID] = *tenant

	registry := vertical.NewStaticRegistry()
	logger := zap.NewNop()
	publisher := stubPublisher{}

	configs := appvertical.NewConfigService(
		&stubTenantRepo{state: state},
		&stubOverrideRepo{state: state},
		registry,
		cache.NewLocalConfigCache(),
		&stubSharedCache{entries: make(map[uuid.UUID]*vertical.CacheEntry)},
		publisher,
		logger,
	)
	migrations := appvertical.NewMigrationService(
		&stubUnitOfWork{state: state},
		&stubTenantRepo{state: state},
		&stubSnapshotRepo{state: state},
		registry,
		stubScriptRunner{},
		configs,
		publisher,
		logger,
	)
	compatibility := appvertical.NewCompatibilityService(
		&stubTenantRepo{state: state},
		&stubInspector{},
		logger,
	)
	webhooks := appvertical.NewWebhookDispatcher(appvertical.DefaultWebhookDispatcherConfig(), logger)

	handler := NewVerticalHandler(compatibility, migrations, configs, &stubAuditRepo{state: state}, &stubAlertRepo{state: state}, webhooks, logger)

	engine := gin.New()
	router.NewRouter(engine).Register(handler).Setup()

	return &testServer{engine: engine, state: state, tenant: *tenant}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiResponse holds the decoded envelope. Data is populated only when
// the payload is a JSON object; list endpoints decode their bodies
// directly.
type apiResponse struct {
	Success bool
	Data    map[string]any
	Error   *apiError
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var parsed apiResponse
	if w.Body.Len() > 0 {
		var envelope struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
			Error   *apiError       `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		parsed.Success = envelope.Success
		parsed.Error = envelope.Error
		if data := bytes.TrimSpace(envelope.Data); bytes.HasPrefix(data, []byte("{")) {
			require.NoError(t, json.Unmarshal(data, &parsed.Data))
		}
	}
	return w, parsed
}

func actorHeader() map[string]string {
	return map[string]string{"X-User-ID": uuid.NewString()}
}

func TestGetConfigEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	w, resp := s.do(t, http.MethodGet, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/config", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "retail", resp.Data["name"])
}

func TestGetConfigUnknownTenant(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	w, resp := s.do(t, http.MethodGet, "/api/v1/tenants/"+uuid.NewString()+"/vertical/config", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)
}

func TestGetConfigInvalidTenantID(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	w, _ := s.do(t, http.MethodGet, "/api/v1/tenants/not-a-uuid/vertical/config", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeVerticalEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.General)

	body := map[string]any{
		"from_vertical": "general",
		"to_vertical":   "retail",
		"reason":        "store launch",
	}
	w, resp := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/change", body, actorHeader())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "retail", resp.Data["new_vertical"])

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	assert.Equal(t, vertical.Retail, s.state.tenants[s.tenant.ID].Vertical)
	require.Len(t, s.state.audits, 1)
	assert.Equal(t, "store launch", s.state.audits[0].Reason)
}

func TestChangeVerticalConflict(t *testing.T) {
	s := newTestServer(t, vertical.Services)

	body := map[string]any{
		"from_vertical": "general",
		"to_vertical":   "retail",
	}
	w, resp := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/change", body, actorHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_CONCURRENCY_CONFLICT", resp.Error.Code)
}

func TestChangeVerticalRequiresActor(t *testing.T) {
	s := newTestServer(t, vertical.General)

	body := map[string]any{
		"from_vertical": "general",
		"to_vertical":   "retail",
	}
	w, _ := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/change", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeVerticalUnknownVertical(t *testing.T) {
	s := newTestServer(t, vertical.General)

	body := map[string]any{
		"from_vertical": "general",
		"to_vertical":   "spaceships",
	}
	w, resp := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/change", body, actorHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_INVALID_INPUT", resp.Error.Code)
}

func TestRollbackWithoutSnapshot(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	w, resp := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/rollback", nil, actorHeader())

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_SNAPSHOT_NOT_FOUND", resp.Error.Code)
}

func TestRollbackAfterChange(t *testing.T) {
	s := newTestServer(t, vertical.General)

	change := map[string]any{"from_vertical": "general", "to_vertical": "restaurants"}
	w, _ := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/change", change, actorHeader())
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/rollback", nil, actorHeader())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "general", resp.Data["restored_vertical"])
}

func TestCheckCompatibilityEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.General)

	body := map[string]any{"from_vertical": "general", "to_vertical": "retail"}
	w, resp := s.do(t, http.MethodPost, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/check", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data["is_compatible"])
}

func TestGetFeatureEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	w, resp := s.do(t, http.MethodGet, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/features/pos_integration", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data["enabled"])
}

func TestOverrideLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t, vertical.General)
	base := "/api/v1/tenants/" + s.tenant.ID.String() + "/vertical"

	body := map[string]any{
		"features": map[string]bool{"pos_integration": true},
		"ui":       map[string]string{"primary_color": "#112233"},
	}
	w, _ := s.do(t, http.MethodPut, base+"/override", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The resolved config reflects the override on the next read
	w, resp := s.do(t, http.MethodGet, base+"/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	features, ok := resp.Data["features"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, features["pos_integration"])

	w, resp = s.do(t, http.MethodGet, base+"/override", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Data["override"])

	w, _ = s.do(t, http.MethodDelete, base+"/override", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Defaults are back once the override is gone
	w, resp = s.do(t, http.MethodGet, base+"/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	features, ok = resp.Data["features"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, features["pos_integration"])
}

func TestPutOverrideUnknownTenant(t *testing.T) {
	s := newTestServer(t, vertical.General)

	body := map[string]any{"features": map[string]bool{"pos_integration": true}}
	w, resp := s.do(t, http.MethodPut, "/api/v1/tenants/"+uuid.NewString()+"/vertical/override", body, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)
}

func TestSchemaEnforcementEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.Computers)
	base := "/api/v1/tenants/" + s.tenant.ID.String() + "/vertical"

	w, resp := s.do(t, http.MethodPut, base+"/schema-enforcement", map[string]any{"enforced": true}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data["enforced"])

	w, resp = s.do(t, http.MethodGet, base+"/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data["enforced_product_schema"])

	// Missing body is rejected, nothing changes
	w, _ = s.do(t, http.MethodPut, base+"/schema-enforcement", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAlertsEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.General)

	s.state.mu.Lock()
	s.state.alerts = append(s.state.alerts,
		*vertical.NewVerticalChangeAlert(s.tenant.ID, s.tenant.OrganizationID, "Vertical changed from general to retail"),
	)
	s.state.mu.Unlock()

	w, _ := s.do(t, http.MethodGet, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/alerts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "Vertical changed from general to retail", listed.Data[0]["Message"])
}

func TestListAuditsRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	w, _ := s.do(t, http.MethodGet, "/api/v1/tenants/"+s.tenant.ID.String()+"/vertical/audits?limit=0", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCacheInvalidateEndpoint(t *testing.T) {
	s := newTestServer(t, vertical.Retail)

	body := map[string]any{"tenant_ids": []string{s.tenant.ID.String(), uuid.NewString()}}
	w, resp := s.do(t, http.MethodPost, "/api/v1/vertical/cache/invalidate", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp.Data["invalidated"])
}

func TestWebhookLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t, vertical.Retail)
	orgID := s.tenant.OrganizationID.String()
	base := "/api/v1/organizations/" + orgID + "/vertical-webhooks"

	w, _ := s.do(t, http.MethodPost, base, map[string]any{"url": "https://hooks.example.com/a"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := s.do(t, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	var listed struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "https://hooks.example.com/a", listed.Data[0]["url"])

	w, _ = s.do(t, http.MethodDelete, base+"?url=https://hooks.example.com/a", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestWebhookRegisterRejectsBadURL(t *testing.T) {
	s := newTestServer(t, vertical.Retail)
	base := "/api/v1/organizations/" + s.tenant.OrganizationID.String() + "/vertical-webhooks"

	w, _ := s.do(t, http.MethodPost, base, map[string]any{"url": "not a url"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
