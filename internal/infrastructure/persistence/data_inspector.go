package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

// recentActivityWindow bounds how far back POS sales and production
// orders count as recent activity
const recentActivityWindow = 30 * 24 * time.Hour

// GormDataInspector implements vertical.DataInspector with aggregate
// queries over the tenant's business tables. All queries are read-only.
type GormDataInspector struct {
	db *gorm.DB
}

// NewGormDataInspector creates a new GormDataInspector
func NewGormDataInspector(db *gorm.DB) *GormDataInspector {
	return &GormDataInspector{db: db}
}

// Inspect gathers the tenant's data volume and open operational state
func (i *GormDataInspector) Inspect(ctx context.Context, tenantID, organizationID uuid.UUID) (*vertical.ActivitySnapshot, error) {
	snapshot := &vertical.ActivitySnapshot{}
	recentSince := time.Now().Add(-recentActivityWindow)

	counts := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&snapshot.ProductCount,
			"SELECT COUNT(*) FROM products WHERE tenant_id = ?",
			[]interface{}{tenantID}},
		{&snapshot.LegacyProductCount,
			"SELECT COUNT(*) FROM products WHERE tenant_id = ? AND vertical_metadata IS NOT NULL",
			[]interface{}{tenantID}},
		{&snapshot.InventoryCount,
			"SELECT COUNT(*) FROM inventory_items WHERE tenant_id = ?",
			[]interface{}{tenantID}},
		{&snapshot.PendingOrderCount,
			"SELECT COUNT(*) FROM orders WHERE tenant_id = ? AND status IN ('pending', 'processing')",
			[]interface{}{tenantID}},
		{&snapshot.RecentPOSSaleCount,
			"SELECT COUNT(*) FROM pos_sales WHERE tenant_id = ? AND created_at >= ?",
			[]interface{}{tenantID, recentSince}},
		{&snapshot.OpenCashRegisterCount,
			"SELECT COUNT(*) FROM cash_registers WHERE tenant_id = ? AND status = 'open'",
			[]interface{}{tenantID}},
		{&snapshot.RecentProductionCount,
			"SELECT COUNT(*) FROM production_orders WHERE tenant_id = ? AND created_at >= ?",
			[]interface{}{tenantID, recentSince}},
	}
	for _, c := range counts {
		if err := i.db.WithContext(ctx).Raw(c.query, c.args...).Scan(c.dest).Error; err != nil {
			return nil, fmt.Errorf("inspect tenant data: %w", err)
		}
	}

	siteSettings, err := i.loadJSONDocument(ctx,
		"SELECT settings FROM site_settings WHERE tenant_id = ?", tenantID)
	if err != nil {
		return nil, err
	}
	snapshot.SiteSettings = siteSettings

	orgPreferences, err := i.loadJSONDocument(ctx,
		"SELECT preferences FROM organizations WHERE id = ?", organizationID)
	if err != nil {
		return nil, err
	}
	snapshot.OrgPreferences = orgPreferences

	return snapshot, nil
}

// loadJSONDocument reads a single jsonb column; a missing row or NULL
// column yields a nil document, not an error
func (i *GormDataInspector) loadJSONDocument(ctx context.Context, query string, arg interface{}) (map[string]any, error) {
	var raw []byte
	err := i.db.WithContext(ctx).Raw(query, arg).Row().Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings document: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse settings document: %w", err)
	}
	return doc, nil
}

var _ vertical.DataInspector = (*GormDataInspector)(nil)
