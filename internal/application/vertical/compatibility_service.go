package vertical

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/vertical"
)

// CompatibilityService analyzes whether a tenant can move between
// verticals. The check is read-only and safe to call any number of
// times; errors in the result block a migration, warnings are
// advisory.
type CompatibilityService struct {
	tenants   vertical.TenantRepository
	inspector vertical.DataInspector
	logger    *zap.Logger
}

// NewCompatibilityService creates a new CompatibilityService
func NewCompatibilityService(
	tenants vertical.TenantRepository,
	inspector vertical.DataInspector,
	logger *zap.Logger,
) *CompatibilityService {
	return &CompatibilityService{
		tenants:   tenants,
		inspector: inspector,
		logger:    logger,
	}
}

// Check evaluates the transition from one vertical to another for a
// tenant
func (s *CompatibilityService) Check(ctx context.Context, tenantID uuid.UUID, from, to vertical.Vertical) (*vertical.CompatibilityResult, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	activity, err := s.inspector.Inspect(ctx, tenant.ID, tenant.OrganizationID)
	if err != nil {
		return nil, err
	}

	var errs, warnings []string
	affected := make(map[string]struct{})

	if from == to {
		warnings = append(warnings, "The tenant already uses this vertical.")
	}

	// Open kitchen orders block leaving the restaurants vertical
	if from == vertical.Restaurants && to != vertical.Restaurants && activity.PendingOrderCount > 0 {
		errs = append(errs, fmt.Sprintf(
			"There are %d active orders that must be completed before changing vertical.",
			activity.PendingOrderCount,
		))
		affected["kitchenDisplay"] = struct{}{}
		affected["tableManagement"] = struct{}{}
	}

	if to == vertical.Retail && activity.LegacyProductCount > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Detected %d products without variants (size/color). Run the migration before confirming.",
			activity.LegacyProductCount,
		))
		affected["inventory"] = struct{}{}
		affected["sales"] = struct{}{}
	}

	if to == vertical.Services && activity.InventoryCount > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"The services vertical does not manage physical inventory. %d records will become read-only.",
			activity.InventoryCount,
		))
		affected["inventory"] = struct{}{}
	}

	enabledModules := vertical.CollectEnabledModules(activity.SiteSettings, activity.OrgPreferences)
	sort.Strings(enabledModules)
	for _, module := range enabledModules {
		affected[module] = struct{}{}
	}
	if len(enabledModules) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Enabled modules detected (%s). Verify they remain available in the new vertical.",
			strings.Join(enabledModules, ", "),
		))
	}

	integrations := vertical.CollectIntegrations(activity.SiteSettings)
	sort.Strings(integrations)
	if len(integrations) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Active integrations detected (%s). Confirm they are compatible with the new vertical.",
			strings.Join(integrations, ", "),
		))
	}

	customFields := append(
		vertical.CollectCustomFields(activity.SiteSettings),
		vertical.CollectCustomFields(activity.OrgPreferences)...,
	)

	if activity.RecentPOSSaleCount > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"There are %d recent POS sales. Close them before migrating.",
			activity.RecentPOSSaleCount,
		))
		affected["sales"] = struct{}{}
	}

	// Open cash registers always block a migration
	if activity.OpenCashRegisterCount > 0 {
		errs = append(errs, fmt.Sprintf(
			"Found %d open cash registers. They must be closed before changing vertical.",
			activity.OpenCashRegisterCount,
		))
		affected["cashregister"] = struct{}{}
	}

	if activity.RecentProductionCount > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"There are %d production processes in progress.",
			activity.RecentProductionCount,
		))
		affected["production"] = struct{}{}
	}

	impact := vertical.DataImpact{
		Tables: []vertical.ImpactTable{
			{
				Name:              "products",
				RecordCount:       activity.ProductCount,
				WillBeHidden:      false,
				WillBeMigrated:    activity.LegacyProductCount > 0,
				BackupRecommended: activity.LegacyProductCount > 0,
			},
			{
				Name:              "inventory",
				RecordCount:       activity.InventoryCount,
				WillBeHidden:      to == vertical.Services,
				WillBeMigrated:    to == vertical.Retail,
				BackupRecommended: activity.InventoryCount > 0,
			},
		},
		CustomFields: customFields,
		Integrations: integrations,
	}

	switch to {
	case vertical.Retail:
		impact.CustomFields = append(impact.CustomFields,
			vertical.ImpactCustomField{Entity: "product", Field: "size"},
			vertical.ImpactCustomField{Entity: "product", Field: "color"},
		)
	case vertical.Restaurants:
		impact.CustomFields = append(impact.CustomFields,
			vertical.ImpactCustomField{Entity: "product", Field: "kitchen_station"},
		)
	}

	requiresMigration := activity.LegacyProductCount > 0 ||
		activity.InventoryCount > 0 ||
		activity.PendingOrderCount > 0 ||
		len(customFields) > 0 ||
		activity.RecentPOSSaleCount > 0 ||
		activity.RecentProductionCount > 0

	result := &vertical.CompatibilityResult{
		IsCompatible:             len(errs) == 0,
		Errors:                   errs,
		Warnings:                 warnings,
		RequiresMigration:        requiresMigration,
		AffectedModules:          sortedKeys(affected),
		EstimatedDowntimeMinutes: estimateDowntime(activity.LegacyProductCount, activity.PendingOrderCount),
		DataImpact:               impact,
	}

	s.logger.Debug("compatibility check completed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Bool("is_compatible", result.IsCompatible),
		zap.Bool("requires_migration", result.RequiresMigration),
	)
	return result, nil
}

// estimateDowntime projects migration downtime in minutes: a 5 minute
// base, plus one minute per 40 legacy products capped at 1000, plus
// 10 minutes when pending orders must drain
func estimateDowntime(legacyProducts, pendingOrders int64) int {
	downtime := 5.0
	capped := legacyProducts
	if capped > 1000 {
		capped = 1000
	}
	downtime += float64(capped) / 40
	if pendingOrders > 0 {
		downtime += 10
	}
	return int(math.Round(downtime))
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
