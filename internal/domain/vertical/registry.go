package vertical

import (
	"github.com/shopspring/decimal"
)

// Registry resolves the static default configuration for a vertical.
// Resolve must always return a usable config: unknown verticals fall
// back to the General entry.
type Registry interface {
	Resolve(v Vertical) Config
}

// StaticRegistry is the built-in, read-only vertical catalog
type StaticRegistry struct {
	configs map[Vertical]Config
}

// NewStaticRegistry builds the default catalog
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{configs: defaultCatalog()}
}

// Resolve returns the configuration for a vertical, falling back to
// General when the vertical is not in the catalog
func (r *StaticRegistry) Resolve(v Vertical) Config {
	if cfg, ok := r.configs[v]; ok {
		return cfg
	}
	return r.configs[General]
}

var _ Registry = (*StaticRegistry)(nil)

// standardRate is the default VAT-style rate applied across verticals
var standardRate = decimal.NewFromFloat(0.18)

func baseFeatures(overrides map[string]bool) map[string]bool {
	features := map[string]bool{
		"sales":                 true,
		"inventory":             true,
		"production":            false,
		"reservations":          false,
		"appointments":          false,
		"multi_warehouse":       true,
		"lot_tracking":          false,
		"serial_numbers":        false,
		"table_management":      false,
		"kitchen_display":       false,
		"work_orders":           false,
		"project_tracking":      false,
		"pos_integration":       false,
		"ecommerce_integration": false,
		"delivery_platforms":    false,
		"accounting":            true,
		"cash_register":         true,
		"quotes":                true,
	}
	for k, v := range overrides {
		features[k] = v
	}
	return features
}

func defaultCatalog() map[Vertical]Config {
	return map[Vertical]Config{
		General: {
			Name:        General,
			DisplayName: "General Business",
			Description: "Default profile for businesses without a specialized vertical.",
			Features:    baseFeatures(nil),
			UI: map[string]string{
				"theme":            "default",
				"dashboard_layout": "standard",
				"invoice_template": "standard-invoice",
				"receipt_template": "standard-receipt",
				"report_template":  "standard-report",
			},
			ProductSchema: ProductSchema{
				InventoryTracking: "by_product",
				PricingModel:      "uniform",
				Fields:            []SchemaField{},
			},
			Fiscal: FiscalConfig{
				TaxCalculation: "standard",
				StandardRate:   standardRate,
				RequiredFields: []string{"tax_id"},
				InvoiceFormat:  "standard",
			},
			Migrations: MigrationScripts{
				OnActivate: []string{"ensure_default_settings"},
			},
			RequiresDataMigration: false,
			Active:                true,
			Version:               "1.0.0",
		},
		Computers: {
			Name:        Computers,
			DisplayName: "Computers & Electronics",
			Description: "For electronics stores with serial-number tracking and repairs.",
			Features: baseFeatures(map[string]bool{
				"serial_numbers":        true,
				"work_orders":           true,
				"pos_integration":       true,
				"ecommerce_integration": true,
			}),
			UI: map[string]string{
				"theme":            "default",
				"dashboard_layout": "sales-focused",
				"invoice_template": "standard-invoice",
				"receipt_template": "standard-receipt",
				"report_template":  "inventory-report",
			},
			ProductSchema: ProductSchema{
				InventoryTracking: "by_product",
				PricingModel:      "uniform",
				Fields: []SchemaField{
					{Key: "serial_number", Label: "Serial Number", Type: "text", Generated: true},
					{Key: "warranty_months", Label: "Warranty (months)", Type: "number"},
					{Key: "brand", Label: "Brand", Type: "text"},
				},
			},
			Fiscal: FiscalConfig{
				TaxCalculation: "standard",
				StandardRate:   standardRate,
				RequiredFields: []string{"tax_id"},
				InvoiceFormat:  "detailed",
			},
			RequiresDataMigration: false,
			Active:                true,
			Version:               "1.0.0",
		},
		Retail: {
			Name:        Retail,
			DisplayName: "Retail",
			Description: "Optimized for clothing stores and variant-heavy commerce.",
			Features: baseFeatures(map[string]bool{
				"lot_tracking":          true,
				"serial_numbers":        true,
				"pos_integration":       true,
				"ecommerce_integration": true,
				"delivery_platforms":    true,
			}),
			UI: map[string]string{
				"theme":            "retail",
				"dashboard_layout": "sales-focused",
				"primary_color":    "#4ECDC4",
				"invoice_template": "retail-invoice",
				"receipt_template": "retail-receipt",
				"report_template":  "inventory-report",
			},
			ProductSchema: ProductSchema{
				InventoryTracking: "by_variant",
				PricingModel:      "by_variant",
				Fields: []SchemaField{
					{Key: "size", Label: "Size", Type: "select", Options: []string{"XS", "S", "M", "L", "XL", "XXL"}, Required: true, Group: "clothing"},
					{Key: "color", Label: "Color", Type: "color", Options: []string{"black", "white", "blue", "red", "green", "yellow", "gray", "brown", "pink", "purple", "orange"}, Required: true, Group: "clothing"},
					{Key: "sku_variant", Label: "Variant SKU", Type: "text", Generated: true, Required: true},
					{Key: "material", Label: "Material", Type: "text"},
					{Key: "variants", Label: "Variants", Type: "json"},
				},
			},
			Fiscal: FiscalConfig{
				TaxCalculation: "retail",
				StandardRate:   standardRate,
				RequiredFields: []string{"tax_id", "store_code"},
				InvoiceFormat:  "detailed",
				TaxCategories:  []string{"standard", "reduced", "exempt"},
			},
			Migrations: MigrationScripts{
				OnActivate: []string{"create_retail_catalogs", "setup_pos_stations", "initialize_barcode_system"},
			},
			RequiresDataMigration: true,
			Active:                true,
			Version:               "1.0.0",
		},
		Restaurants: {
			Name:        Restaurants,
			DisplayName: "Restaurants & Cafes",
			Description: "For food businesses with table service and kitchen workflows.",
			Features: baseFeatures(map[string]bool{
				"production":         true,
				"reservations":       true,
				"table_management":   true,
				"kitchen_display":    true,
				"pos_integration":    true,
				"delivery_platforms": true,
				"multi_warehouse":    false,
			}),
			UI: map[string]string{
				"theme":            "restaurant",
				"dashboard_layout": "sales-focused",
				"primary_color":    "#FF6B6B",
				"invoice_template": "restaurant-invoice",
				"receipt_template": "restaurant-receipt",
				"report_template":  "sales-report",
			},
			ProductSchema: ProductSchema{
				InventoryTracking: "by_ingredient",
				PricingModel:      "by_modifiers",
				Fields: []SchemaField{
					{Key: "ingredients", Label: "Ingredients", Type: "json", Required: true},
					{Key: "ingredient_unit", Label: "Unit of Measure", Type: "select", Options: []string{"UNIT", "KG", "GR", "LT", "ML"}, Required: true},
					{Key: "prep_time", Label: "Preparation Time (min)", Type: "number", Required: true},
					{Key: "kitchen_station", Label: "Kitchen Station", Type: "select", Options: []string{"GRILL", "FRY", "COLD", "BAKERY"}, Required: true},
					{Key: "dietary_info", Label: "Dietary Info", Type: "multi-select", Options: []string{"VEGAN", "GLUTEN_FREE", "LACTOSE_FREE", "SPICY"}},
					{Key: "allergens", Label: "Allergens", Type: "text"},
					{Key: "expiration_date", Label: "Expiration Date", Type: "date"},
					{Key: "lot_number", Label: "Lot Number", Type: "text"},
				},
			},
			Fiscal: FiscalConfig{
				TaxCalculation: "restaurant",
				StandardRate:   standardRate,
				RequiredFields: []string{"tax_id"},
				InvoiceFormat:  "simplified",
				TaxCategories:  []string{"food", "beverage", "alcohol"},
			},
			Migrations: MigrationScripts{
				OnActivate: []string{"create_restaurant_tables", "create_kitchen_stations"},
				DataTransformations: []DataTransformation{
					{Table: "products", Transformation: "convert_to_menu_items"},
				},
			},
			RequiresDataMigration: true,
			Active:                true,
			Version:               "1.0.0",
		},
		Services: {
			Name:        Services,
			DisplayName: "Professional Services",
			Description: "For service businesses billing time and projects, not stock.",
			Features: baseFeatures(map[string]bool{
				"inventory":        false,
				"appointments":     true,
				"project_tracking": true,
				"multi_warehouse":  false,
				"cash_register":    false,
			}),
			UI: map[string]string{
				"theme":            "services",
				"dashboard_layout": "standard",
				"invoice_template": "services-invoice",
				"receipt_template": "standard-receipt",
				"report_template":  "project-report",
			},
			ProductSchema: ProductSchema{
				InventoryTracking: "by_product",
				PricingModel:      "uniform",
				Fields: []SchemaField{
					{Key: "billing_unit", Label: "Billing Unit", Type: "select", Options: []string{"HOUR", "DAY", "PROJECT"}, Required: true},
					{Key: "estimated_hours", Label: "Estimated Hours", Type: "number"},
				},
			},
			Fiscal: FiscalConfig{
				TaxCalculation: "service",
				StandardRate:   standardRate,
				RequiredFields: []string{"tax_id"},
				InvoiceFormat:  "standard",
			},
			Migrations: MigrationScripts{
				OnActivate: []string{"setup_project_templates"},
			},
			RequiresDataMigration: true,
			Active:                false,
			Version:               "1.0.0",
		},
		Manufacturing: {
			Name:        Manufacturing,
			DisplayName: "Manufacturing & Production",
			Description: "For businesses running work orders and bills of materials.",
			Features: baseFeatures(map[string]bool{
				"production":            true,
				"lot_tracking":          true,
				"serial_numbers":        true,
				"work_orders":           true,
				"project_tracking":      true,
				"ecommerce_integration": true,
			}),
			UI: map[string]string{
				"theme":            "default",
				"dashboard_layout": "production-focused",
				"invoice_template": "manufacturing-invoice",
				"receipt_template": "standard-receipt",
				"report_template":  "production-report",
			},
			ProductSchema: ProductSchema{
				InventoryTracking: "lot_tracking",
				PricingModel:      "uniform",
				Fields: []SchemaField{
					{Key: "bom", Label: "Bill of Materials", Type: "json", Required: true},
					{Key: "production_time", Label: "Production Time (hours)", Type: "number"},
					{Key: "lot_number", Label: "Lot Number", Type: "text", Generated: true},
				},
			},
			Fiscal: FiscalConfig{
				TaxCalculation: "standard",
				StandardRate:   standardRate,
				RequiredFields: []string{"tax_id", "manufacturing_license"},
				InvoiceFormat:  "detailed",
				TaxCategories:  []string{"raw_materials", "finished_goods"},
			},
			Migrations: MigrationScripts{
				OnActivate: []string{"setup_bom_system", "initialize_work_orders"},
			},
			RequiresDataMigration: true,
			Active:                false,
			Version:               "1.0.0",
		},
	}
}
