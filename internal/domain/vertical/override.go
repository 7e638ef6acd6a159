package vertical

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/shared"
)

// TenantOverride stores a tenant's partial configuration, deep-merged
// over the vertical default at resolution time
type TenantOverride struct {
	TenantID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ConfigJSON     []byte    `gorm:"column:config_json;type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (TenantOverride) TableName() string {
	return "tenant_vertical_overrides"
}

// NewTenantOverride builds the stored override document for a tenant
func NewTenantOverride(tenantID, organizationID uuid.UUID, override *ConfigOverride) (*TenantOverride, error) {
	if override == nil {
		return nil, shared.NewDomainError("INVALID_OVERRIDE", "Override document is required")
	}
	raw, err := json.Marshal(override)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_OVERRIDE", "Tenant override document is not valid JSON")
	}
	now := time.Now()
	return &TenantOverride{
		TenantID:       tenantID,
		OrganizationID: organizationID,
		ConfigJSON:     raw,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Parse decodes the stored override document. A missing or empty
// document yields nil, which Merge treats as a no-op.
func (o *TenantOverride) Parse() (*ConfigOverride, error) {
	if o == nil || len(o.ConfigJSON) == 0 {
		return nil, nil
	}
	var override ConfigOverride
	if err := json.Unmarshal(o.ConfigJSON, &override); err != nil {
		return nil, shared.NewDomainError("INVALID_OVERRIDE", "Tenant override document is not valid JSON")
	}
	return &override, nil
}
