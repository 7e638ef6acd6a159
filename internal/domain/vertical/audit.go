package vertical

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WarningList is a JSONB-backed slice of warning messages
type WarningList []string

// Value implements driver.Valuer for JSONB storage
func (w WarningList) Value() (driver.Value, error) {
	if len(w) == 0 {
		return nil, nil
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner for JSONB storage
func (w *WarningList) Scan(value interface{}) error {
	if value == nil {
		*w = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return errors.New("unsupported type for WarningList")
	}
}

// ChangeAuditRecord is the append-only trail of vertical transitions.
// One record exists per attempted transition, including failed and
// compensated ones; records are never updated or deleted.
type ChangeAuditRecord struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID   `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;index"`
	ActorID        uuid.UUID   `gorm:"type:uuid;not null"`
	OldVertical    Vertical    `gorm:"type:varchar(30);not null"`
	NewVertical    Vertical    `gorm:"type:varchar(30);not null"`
	Reason         string      `gorm:"type:text"`
	Warnings       WarningList `gorm:"type:jsonb"`
	Success        bool        `gorm:"not null"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (ChangeAuditRecord) TableName() string {
	return "vertical_change_audits"
}

// NewChangeAuditRecord creates an audit record for one transition attempt
func NewChangeAuditRecord(tenantID, organizationID, actorID uuid.UUID, oldV, newV Vertical, reason string, warnings []string, success bool) *ChangeAuditRecord {
	return &ChangeAuditRecord{
		ID:             uuid.New(),
		TenantID:       tenantID,
		OrganizationID: organizationID,
		ActorID:        actorID,
		OldVertical:    oldV,
		NewVertical:    newV,
		Reason:         reason,
		Warnings:       warnings,
		Success:        success,
		CreatedAt:      time.Now(),
	}
}

// VerticalChangeAlert is the best-effort informational record written
// by the audit notifier after a migration commits. Losing one never
// affects the migration outcome.
type VerticalChangeAlert struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null"`
	Message        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (VerticalChangeAlert) TableName() string {
	return "vertical_change_alerts"
}

// NewVerticalChangeAlert creates a change alert
func NewVerticalChangeAlert(tenantID, organizationID uuid.UUID, message string) *VerticalChangeAlert {
	return &VerticalChangeAlert{
		ID:             uuid.New(),
		TenantID:       tenantID,
		OrganizationID: organizationID,
		Message:        message,
		CreatedAt:      time.Now(),
	}
}
