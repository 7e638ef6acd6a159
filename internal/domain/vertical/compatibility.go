package vertical

// ImpactTable describes how one business table is affected by a
// vertical transition
type ImpactTable struct {
	Name              string `json:"name"`
	RecordCount       int64  `json:"record_count"`
	WillBeHidden      bool   `json:"will_be_hidden"`
	WillBeMigrated    bool   `json:"will_be_migrated"`
	BackupRecommended bool   `json:"backup_recommended"`
}

// ImpactCustomField describes a vertical-specific custom field
type ImpactCustomField struct {
	Entity        string `json:"entity"`
	Field         string `json:"field"`
	WillBeRemoved bool   `json:"will_be_removed"`
}

// DataImpact aggregates the data-shape consequences of a transition
type DataImpact struct {
	Tables       []ImpactTable       `json:"tables"`
	CustomFields []ImpactCustomField `json:"custom_fields"`
	Integrations []string            `json:"integrations"`
}

// CompatibilityResult is the structured go/no-go verdict for a
// proposed vertical transition. Errors block the migration; warnings
// are advisory.
type CompatibilityResult struct {
	IsCompatible             bool       `json:"is_compatible"`
	Errors                   []string   `json:"errors"`
	Warnings                 []string   `json:"warnings"`
	RequiresMigration        bool       `json:"requires_migration"`
	AffectedModules          []string   `json:"affected_modules"`
	EstimatedDowntimeMinutes int        `json:"estimated_downtime_minutes"`
	DataImpact               DataImpact `json:"data_impact"`
}

// ActivitySnapshot is the read-only aggregate view of a tenant's data
// volume and open operational state, gathered by the data inspector
type ActivitySnapshot struct {
	ProductCount          int64
	LegacyProductCount    int64
	InventoryCount        int64
	PendingOrderCount     int64
	RecentPOSSaleCount    int64
	OpenCashRegisterCount int64
	RecentProductionCount int64
	SiteSettings          map[string]any
	OrgPreferences        map[string]any
}

// CollectEnabledModules extracts the names of modules switched on in
// settings documents (the "permissions" object, truthy values only)
func CollectEnabledModules(sources ...map[string]any) []string {
	seen := make(map[string]struct{})
	var modules []string
	for _, source := range sources {
		if source == nil {
			continue
		}
		permissions, ok := source["permissions"].(map[string]any)
		if !ok {
			continue
		}
		for name, value := range permissions {
			enabled, ok := value.(bool)
			if !ok || !enabled {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			modules = append(modules, name)
		}
	}
	return modules
}

// CollectIntegrations extracts the names of configured third-party
// integrations from a settings document. An integration counts as
// active when its value is true or a non-blank string.
func CollectIntegrations(settings map[string]any) []string {
	if settings == nil {
		return nil
	}
	integrations, ok := settings["integrations"].(map[string]any)
	if !ok {
		return nil
	}
	var active []string
	for name, value := range integrations {
		switch v := value.(type) {
		case bool:
			if v {
				active = append(active, name)
			}
		case string:
			if len(v) > 0 && v != " " {
				active = append(active, name)
			}
		}
	}
	return active
}

// CollectCustomFields extracts custom field definitions from a
// settings document ("customFields" array of {entity, field|name})
func CollectCustomFields(settings map[string]any) []ImpactCustomField {
	if settings == nil {
		return nil
	}
	raw, ok := settings["customFields"].([]any)
	if !ok {
		return nil
	}
	var fields []ImpactCustomField
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		entity, _ := obj["entity"].(string)
		field, _ := obj["field"].(string)
		if field == "" {
			field, _ = obj["name"].(string)
		}
		if entity == "" || field == "" {
			continue
		}
		fields = append(fields, ImpactCustomField{Entity: entity, Field: field})
	}
	return fields
}
