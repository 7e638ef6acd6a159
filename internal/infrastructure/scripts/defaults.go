package scripts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// ensureDefaultSettings guarantees the tenant has a site settings row
// so later feature toggles have somewhere to land
func ensureDefaultSettings(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	now := time.Now()
	return db.WithContext(ctx).Exec(
		`INSERT INTO site_settings (id, tenant_id, settings, created_at, updated_at)
		 VALUES (?, ?, '{}'::jsonb, ?, ?)
		 ON CONFLICT (tenant_id) DO NOTHING`,
		uuid.New(), sctx.TenantID, now, now,
	).Error
}

// createRetailCatalogs seeds a default product category for retail
// tenants that have none
func createRetailCatalogs(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	var existing int64
	if err := db.WithContext(ctx).Table("categories").
		Where("tenant_id = ?", sctx.TenantID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	now := time.Now()
	return db.WithContext(ctx).Exec(
		`INSERT INTO categories (id, tenant_id, organization_id, name, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, 'General', 'Default catalog', 'active', ?, ?)
		 ON CONFLICT (organization_id, name) DO NOTHING`,
		uuid.New(), sctx.TenantID, sctx.OrganizationID, now, now,
	).Error
}

// setupPOSStations seeds the main point-of-sale station
func setupPOSStations(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	var existing int64
	if err := db.WithContext(ctx).Table("pos_stations").
		Where("tenant_id = ?", sctx.TenantID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	now := time.Now()
	return db.WithContext(ctx).Exec(
		`INSERT INTO pos_stations (id, tenant_id, organization_id, code, name, is_active, created_at)
		 VALUES (?, ?, ?, 'MAIN', 'Main Station', true, ?)`,
		uuid.New(), sctx.TenantID, sctx.OrganizationID, now,
	).Error
}

// initializeBarcodeSystem switches barcode support on in the tenant's
// site settings
func initializeBarcodeSystem(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	return db.WithContext(ctx).Exec(
		`UPDATE site_settings
		 SET settings = jsonb_set(settings, '{barcode_enabled}', 'true'::jsonb, true), updated_at = ?
		 WHERE tenant_id = ?`,
		time.Now(), sctx.TenantID,
	).Error
}

// setupProjectTemplates seeds the default service project templates
func setupProjectTemplates(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	var existing int64
	if err := db.WithContext(ctx).Table("project_templates").
		Where("tenant_id = ?", sctx.TenantID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	templates := []string{"Consulting Engagement", "Fixed Scope Project", "Retainer"}
	now := time.Now()
	for _, name := range templates {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO project_templates (id, tenant_id, organization_id, name, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.New(), sctx.TenantID, sctx.OrganizationID, name, now,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// setupBOMSystem switches the bill-of-materials module on in the
// tenant's site settings
func setupBOMSystem(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	return db.WithContext(ctx).Exec(
		`UPDATE site_settings
		 SET settings = jsonb_set(settings, '{bom_enabled}', 'true'::jsonb, true), updated_at = ?
		 WHERE tenant_id = ?`,
		time.Now(), sctx.TenantID,
	).Error
}

// initializeWorkOrders switches work order tracking on in the
// tenant's site settings
func initializeWorkOrders(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	return db.WithContext(ctx).Exec(
		`UPDATE site_settings
		 SET settings = jsonb_set(settings, '{work_orders_enabled}', 'true'::jsonb, true), updated_at = ?
		 WHERE tenant_id = ?`,
		time.Now(), sctx.TenantID,
	).Error
}
