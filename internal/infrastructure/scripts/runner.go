package scripts

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// ScriptFunc is one named activation or deactivation script. Scripts
// must be idempotent: re-running after a partial migration is normal.
type ScriptFunc func(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error

// CleanupFunc archives a vertical's specific data when a tenant
// leaves it
type CleanupFunc func(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error

// GormScriptRunner implements vertical.ScriptRunner with a registry
// of named script functions. A script name without a registered
// implementation is logged and skipped, so configuration can reference
// scripts before their implementation ships.
type GormScriptRunner struct {
	db       *gorm.DB
	logger   *zap.Logger
	scripts  map[string]ScriptFunc
	cleanups map[vertical.Vertical]CleanupFunc
}

// NewGormScriptRunner creates a runner with the default script registry
func NewGormScriptRunner(db *gorm.DB, logger *zap.Logger) *GormScriptRunner {
	r := &GormScriptRunner{
		db:       db,
		logger:   logger,
		scripts:  make(map[string]ScriptFunc),
		cleanups: make(map[vertical.Vertical]CleanupFunc),
	}

	r.RegisterScript("ensure_default_settings", ensureDefaultSettings)
	r.RegisterScript("create_retail_catalogs", createRetailCatalogs)
	r.RegisterScript("setup_pos_stations", setupPOSStations)
	r.RegisterScript("initialize_barcode_system", initializeBarcodeSystem)
	r.RegisterScript("create_restaurant_tables", createRestaurantTables)
	r.RegisterScript("create_kitchen_stations", createKitchenStations)
	r.RegisterScript("convert_to_menu_items", convertToMenuItems)
	r.RegisterScript("setup_project_templates", setupProjectTemplates)
	r.RegisterScript("setup_bom_system", setupBOMSystem)
	r.RegisterScript("initialize_work_orders", initializeWorkOrders)

	r.RegisterCleanup(vertical.Restaurants, cleanupRestaurantsData)

	return r
}

// RegisterScript adds or replaces a named script
func (r *GormScriptRunner) RegisterScript(name string, fn ScriptFunc) {
	r.scripts[name] = fn
}

// RegisterCleanup adds or replaces a vertical's cleanup pass
func (r *GormScriptRunner) RegisterCleanup(v vertical.Vertical, fn CleanupFunc) {
	r.cleanups[v] = fn
}

// Run executes a single named script
func (r *GormScriptRunner) Run(ctx context.Context, script string, sctx vertical.ScriptContext) error {
	fn, ok := r.scripts[script]
	if !ok {
		r.logger.Warn("no implementation registered for script, skipping",
			zap.String("script", script),
			zap.String("tenant_id", sctx.TenantID.String()),
		)
		return nil
	}

	r.logger.Info("running vertical script",
		zap.String("script", script),
		zap.String("tenant_id", sctx.TenantID.String()),
	)
	return fn(ctx, r.db, sctx)
}

// RunCleanup executes the archival cleanup pass for a vertical
func (r *GormScriptRunner) RunCleanup(ctx context.Context, v vertical.Vertical, sctx vertical.ScriptContext) error {
	fn, ok := r.cleanups[v]
	if !ok {
		return nil
	}

	r.logger.Info("running vertical cleanup",
		zap.String("vertical", v.String()),
		zap.String("tenant_id", sctx.TenantID.String()),
	)
	return fn(ctx, r.db, sctx)
}

var _ vertical.ScriptRunner = (*GormScriptRunner)(nil)
