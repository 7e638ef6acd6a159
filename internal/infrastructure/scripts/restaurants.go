package scripts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verticore/backend/internal/domain/vertical"
)

type restaurantTable struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Code           string    `gorm:"column:code;size:20;not null"`
	Name           string    `gorm:"column:name;size:100;not null"`
	Capacity       int       `gorm:"column:capacity;not null"`
	Area           string    `gorm:"column:area;size:50"`
	Status         string    `gorm:"column:status;size:20;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (restaurantTable) TableName() string { return "restaurant_tables" }

type archivedRestaurantTable struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OriginalID     uuid.UUID `gorm:"column:original_id;type:uuid;not null"`
	TenantID       uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Code           string    `gorm:"column:code;size:20;not null"`
	Name           string    `gorm:"column:name;size:100;not null"`
	Capacity       int       `gorm:"column:capacity;not null"`
	Area           string    `gorm:"column:area;size:50"`
	Status         string    `gorm:"column:status;size:20;not null"`
	ArchivedReason string    `gorm:"column:archived_reason;size:100;not null"`
	ArchivedAt     time.Time `gorm:"column:archived_at"`
}

func (archivedRestaurantTable) TableName() string { return "archived_restaurant_tables" }

type kitchenStation struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Code           string    `gorm:"column:code;size:20;not null"`
	Name           string    `gorm:"column:name;size:100;not null"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (kitchenStation) TableName() string { return "kitchen_stations" }

type archivedKitchenStation struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OriginalID     uuid.UUID `gorm:"column:original_id;type:uuid;not null"`
	TenantID       uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Code           string    `gorm:"column:code;size:20;not null"`
	Name           string    `gorm:"column:name;size:100;not null"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	ArchivedReason string    `gorm:"column:archived_reason;size:100;not null"`
	ArchivedAt     time.Time `gorm:"column:archived_at"`
}

func (archivedKitchenStation) TableName() string { return "archived_kitchen_stations" }

// createRestaurantTables seeds five default dining tables. Skips when
// the tenant already has tables.
func createRestaurantTables(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	var existing int64
	if err := db.WithContext(ctx).Model(&restaurantTable{}).
		Where("tenant_id = ?", sctx.TenantID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	defaults := []struct {
		code     string
		name     string
		capacity int
		area     string
	}{
		{"M1", "Mesa 1", 2, "Principal"},
		{"M2", "Mesa 2", 4, "Principal"},
		{"M3", "Mesa 3", 4, "Principal"},
		{"M4", "Mesa 4", 6, "Terraza"},
		{"M5", "Mesa 5", 8, "Terraza"},
	}

	now := time.Now()
	tables := make([]restaurantTable, 0, len(defaults))
	for _, d := range defaults {
		tables = append(tables, restaurantTable{
			ID:             uuid.New(),
			TenantID:       sctx.TenantID,
			OrganizationID: sctx.OrganizationID,
			Code:           d.code,
			Name:           d.name,
			Capacity:       d.capacity,
			Area:           d.area,
			Status:         "available",
			CreatedAt:      now,
		})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tables).Error
}

// createKitchenStations seeds the four default kitchen stations. Skips
// when the tenant already has stations.
func createKitchenStations(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	var existing int64
	if err := db.WithContext(ctx).Model(&kitchenStation{}).
		Where("tenant_id = ?", sctx.TenantID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	defaults := []struct {
		code string
		name string
	}{
		{"GRILL", "Grill"},
		{"COLD", "Cold Station"},
		{"BAR", "Bar"},
		{"PASTRY", "Pastry"},
	}

	now := time.Now()
	stations := make([]kitchenStation, 0, len(defaults))
	for _, d := range defaults {
		stations = append(stations, kitchenStation{
			ID:             uuid.New(),
			TenantID:       sctx.TenantID,
			OrganizationID: sctx.OrganizationID,
			Code:           d.code,
			Name:           d.name,
			IsActive:       true,
			CreatedAt:      now,
		})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&stations).Error
}

// convertToMenuItems prepares an existing product catalog for menu
// use by ensuring the default menu categories exist. Tenants without
// products are left untouched.
func convertToMenuItems(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	var productCount int64
	if err := db.WithContext(ctx).Table("products").
		Where("tenant_id = ?", sctx.TenantID).
		Count(&productCount).Error; err != nil {
		return err
	}
	if productCount == 0 {
		return nil
	}

	categories := []struct {
		name        string
		description string
	}{
		{"Entradas", "Platos de entrada"},
		{"Platos Principales", "Platos principales"},
		{"Postres", "Postres y dulces"},
		{"Bebidas", "Bebidas y refrescos"},
	}

	now := time.Now()
	for _, c := range categories {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO categories (id, tenant_id, organization_id, name, description, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 'active', ?, ?)
			 ON CONFLICT (organization_id, name) DO NOTHING`,
			uuid.New(), sctx.TenantID, sctx.OrganizationID, c.name, c.description, now, now,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// cleanupRestaurantsData archives and removes the tenant's dining
// tables and kitchen stations. The archive rows record why the data
// was put away; the default reason marks a vertical migration.
func cleanupRestaurantsData(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
	archiveReason := sctx.Metadata["reason"]
	if archiveReason == "" {
		archiveReason = "vertical_migration"
	}
	now := time.Now()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tables []restaurantTable
		if err := tx.Where("tenant_id = ?", sctx.TenantID).Find(&tables).Error; err != nil {
			return err
		}
		if len(tables) > 0 {
			archived := make([]archivedRestaurantTable, 0, len(tables))
			for _, t := range tables {
				archived = append(archived, archivedRestaurantTable{
					ID:             uuid.New(),
					OriginalID:     t.ID,
					TenantID:       t.TenantID,
					OrganizationID: t.OrganizationID,
					Code:           t.Code,
					Name:           t.Name,
					Capacity:       t.Capacity,
					Area:           t.Area,
					Status:         t.Status,
					ArchivedReason: archiveReason,
					ArchivedAt:     now,
				})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&archived).Error; err != nil {
				return err
			}
			if err := tx.Where("tenant_id = ?", sctx.TenantID).Delete(&restaurantTable{}).Error; err != nil {
				return err
			}
		}

		var stations []kitchenStation
		if err := tx.Where("tenant_id = ?", sctx.TenantID).Find(&stations).Error; err != nil {
			return err
		}
		if len(stations) > 0 {
			archived := make([]archivedKitchenStation, 0, len(stations))
			for _, s := range stations {
				archived = append(archived, archivedKitchenStation{
					ID:             uuid.New(),
					OriginalID:     s.ID,
					TenantID:       s.TenantID,
					OrganizationID: s.OrganizationID,
					Code:           s.Code,
					Name:           s.Name,
					IsActive:       s.IsActive,
					ArchivedReason: archiveReason,
					ArchivedAt:     now,
				})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&archived).Error; err != nil {
				return err
			}
			if err := tx.Where("tenant_id = ?", sctx.TenantID).Delete(&kitchenStation{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
