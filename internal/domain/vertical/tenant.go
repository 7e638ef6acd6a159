package vertical

import (
	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/shared"
)

// Tenant is the business entity whose vertical is being migrated.
// Ownership of the record lives in the host platform's tenancy module;
// this engine only ever mutates the Vertical column, and only inside
// the orchestrator's commit transaction.
type Tenant struct {
	shared.BaseEntity
	OrganizationID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name                  string    `gorm:"type:varchar(200);not null"`
	Vertical              Vertical  `gorm:"type:varchar(30);not null;default:'general'"`
	ProductSchemaEnforced bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a tenant on the general vertical
func NewTenant(organizationID uuid.UUID, name string) (*Tenant, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name is required")
	}
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID is required")
	}
	return &Tenant{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Name:           name,
		Vertical:       General,
	}, nil
}
