package vertical

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/shared"
)

// SnapshotRetention is how long a rollback snapshot stays eligible
// after a migration commits
const SnapshotRetention = 7 * 24 * time.Hour

// SnapshotPayload is the JSON document stored with a rollback snapshot
type SnapshotPayload struct {
	PreviousVertical Vertical  `json:"previous_vertical"`
	Warnings         []string  `json:"warnings,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Value implements driver.Valuer for JSONB storage
func (p SnapshotPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage
func (p *SnapshotPayload) Scan(value interface{}) error {
	if value == nil {
		*p = SnapshotPayload{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported type for SnapshotPayload")
	}
}

// RollbackSnapshot records the vertical in effect immediately before a
// migration committed. Created once per successful migration, consumed
// by at most one rollback, garbage-collected once expired.
type RollbackSnapshot struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Payload        SnapshotPayload `gorm:"type:jsonb;not null"`
	ExpiresAt      time.Time       `gorm:"not null;index"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (RollbackSnapshot) TableName() string {
	return "vertical_rollback_snapshots"
}

// NewRollbackSnapshot creates a snapshot for the vertical in effect
// before the migration transaction commits
func NewRollbackSnapshot(tenantID, organizationID uuid.UUID, previous Vertical, warnings []string, reason string) *RollbackSnapshot {
	now := time.Now()
	return &RollbackSnapshot{
		ID:             uuid.New(),
		TenantID:       tenantID,
		OrganizationID: organizationID,
		Payload: SnapshotPayload{
			PreviousVertical: previous,
			Warnings:         warnings,
			Reason:           reason,
			CreatedAt:        now,
		},
		ExpiresAt: now.Add(SnapshotRetention),
		CreatedAt: now,
	}
}

// RollbackTarget extracts the vertical a rollback should restore.
// A payload without a previous vertical is malformed.
func (s *RollbackSnapshot) RollbackTarget() (Vertical, error) {
	if s.Payload.PreviousVertical == "" {
		return "", shared.NewDomainError("INVALID_SNAPSHOT", "Snapshot payload has no previous vertical")
	}
	return s.Payload.PreviousVertical, nil
}

// Expired reports whether the snapshot is past its retention window
func (s *RollbackSnapshot) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
