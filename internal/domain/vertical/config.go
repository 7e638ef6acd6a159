package vertical

import (
	"github.com/shopspring/decimal"
)

// SchemaField describes one vertical-specific product attribute
type SchemaField struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Type      string   `json:"type"` // text, number, select, multi-select, color, textarea, date, json
	Options   []string `json:"options,omitempty"`
	Required  bool     `json:"required,omitempty"`
	Group     string   `json:"group,omitempty"`
	Generated bool     `json:"generated,omitempty"`
}

// ProductSchema describes how products are modeled under a vertical
type ProductSchema struct {
	InventoryTracking string        `json:"inventory_tracking"` // by_product, by_variant, by_ingredient, lot_tracking
	PricingModel      string        `json:"pricing_model"`      // uniform, by_variant, by_modifiers
	Fields            []SchemaField `json:"fields"`
}

// FiscalConfig holds tax and invoicing rules for a vertical
type FiscalConfig struct {
	TaxCalculation string          `json:"tax_calculation"` // standard, retail, restaurant, service
	StandardRate   decimal.Decimal `json:"standard_rate"`
	RequiredFields []string        `json:"required_fields"`
	InvoiceFormat  string          `json:"invoice_format"` // standard, simplified, detailed
	TaxCategories  []string        `json:"tax_categories,omitempty"`
}

// DataTransformation names a data-shape script run after activation
type DataTransformation struct {
	Table          string `json:"table"`
	Transformation string `json:"transformation"`
}

// MigrationScripts lists the scripts attached to a vertical's lifecycle
type MigrationScripts struct {
	OnActivate          []string             `json:"on_activate,omitempty"`
	OnDeactivate        []string             `json:"on_deactivate,omitempty"`
	DataTransformations []DataTransformation `json:"data_transformations,omitempty"`
}

// Config is the static per-vertical configuration bundle. Instances come
// from the registry and are never mutated at runtime; merging produces
// fresh copies.
type Config struct {
	Name                  Vertical                 `json:"name"`
	DisplayName           string                   `json:"display_name"`
	Description           string                   `json:"description"`
	Features              map[string]bool          `json:"features"`
	UI                    map[string]string        `json:"ui"`
	ProductSchema         ProductSchema            `json:"product_schema"`
	AlternateSchemas      map[string]ProductSchema `json:"alternate_schemas,omitempty"`
	Fiscal                FiscalConfig             `json:"fiscal"`
	Migrations            MigrationScripts         `json:"migrations"`
	RequiresDataMigration bool                     `json:"requires_data_migration"`
	Active                bool                     `json:"active"`
	Version               string                   `json:"version"`
}

// ResolvedConfig is the only configuration object handed to callers:
// the merged vertical config plus the tenant's enforcement flag.
type ResolvedConfig struct {
	Config
	EnforcedProductSchema bool `json:"enforced_product_schema"`
}

// ConfigOverride is a partial Config stored per tenant and deep-merged
// over the vertical default. Maps merge key-wise; ProductSchema.Fields
// replaces wholesale when present.
type ConfigOverride struct {
	Features         map[string]bool          `json:"features,omitempty"`
	UI               map[string]string        `json:"ui,omitempty"`
	ProductSchema    *ProductSchemaOverride   `json:"product_schema,omitempty"`
	Fiscal           *FiscalOverride          `json:"fiscal,omitempty"`
	Migrations       *MigrationScripts        `json:"migrations,omitempty"`
	AlternateSchemas map[string]ProductSchema `json:"alternate_schemas,omitempty"`
}

// ProductSchemaOverride overrides parts of a ProductSchema
type ProductSchemaOverride struct {
	InventoryTracking string        `json:"inventory_tracking,omitempty"`
	PricingModel      string        `json:"pricing_model,omitempty"`
	Fields            []SchemaField `json:"fields,omitempty"`
}

// FiscalOverride overrides parts of a FiscalConfig
type FiscalOverride struct {
	TaxCalculation string           `json:"tax_calculation,omitempty"`
	StandardRate   *decimal.Decimal `json:"standard_rate,omitempty"`
	RequiredFields []string         `json:"required_fields,omitempty"`
	InvoiceFormat  string           `json:"invoice_format,omitempty"`
	TaxCategories  []string         `json:"tax_categories,omitempty"`
}

// Merge deep-merges an override over a base config and returns a new
// Config. The base is never modified.
func Merge(base Config, override *ConfigOverride) Config {
	merged := base
	merged.Features = copyBoolMap(base.Features)
	merged.UI = copyStringMap(base.UI)
	merged.ProductSchema.Fields = append([]SchemaField(nil), base.ProductSchema.Fields...)
	if len(base.AlternateSchemas) > 0 {
		merged.AlternateSchemas = make(map[string]ProductSchema, len(base.AlternateSchemas))
		for k, v := range base.AlternateSchemas {
			merged.AlternateSchemas[k] = v
		}
	}

	if override == nil {
		return merged
	}

	for k, v := range override.Features {
		merged.Features[k] = v
	}
	for k, v := range override.UI {
		merged.UI[k] = v
	}

	if o := override.ProductSchema; o != nil {
		if o.InventoryTracking != "" {
			merged.ProductSchema.InventoryTracking = o.InventoryTracking
		}
		if o.PricingModel != "" {
			merged.ProductSchema.PricingModel = o.PricingModel
		}
		if o.Fields != nil {
			// List-valued fields replace wholesale
			merged.ProductSchema.Fields = append([]SchemaField(nil), o.Fields...)
		}
	}

	if o := override.Fiscal; o != nil {
		if o.TaxCalculation != "" {
			merged.Fiscal.TaxCalculation = o.TaxCalculation
		}
		if o.StandardRate != nil {
			merged.Fiscal.StandardRate = *o.StandardRate
		}
		if o.RequiredFields != nil {
			merged.Fiscal.RequiredFields = append([]string(nil), o.RequiredFields...)
		}
		if o.InvoiceFormat != "" {
			merged.Fiscal.InvoiceFormat = o.InvoiceFormat
		}
		if o.TaxCategories != nil {
			merged.Fiscal.TaxCategories = append([]string(nil), o.TaxCategories...)
		}
	}

	if o := override.Migrations; o != nil {
		if o.OnActivate != nil {
			merged.Migrations.OnActivate = append([]string(nil), o.OnActivate...)
		}
		if o.OnDeactivate != nil {
			merged.Migrations.OnDeactivate = append([]string(nil), o.OnDeactivate...)
		}
		if o.DataTransformations != nil {
			merged.Migrations.DataTransformations = append([]DataTransformation(nil), o.DataTransformations...)
		}
	}

	if len(override.AlternateSchemas) > 0 {
		if merged.AlternateSchemas == nil {
			merged.AlternateSchemas = make(map[string]ProductSchema, len(override.AlternateSchemas))
		}
		for k, v := range override.AlternateSchemas {
			merged.AlternateSchemas[k] = v
		}
	}

	return merged
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
