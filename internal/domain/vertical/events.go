package vertical

import (
	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeVerticalChanged   = "vertical.changed"
	EventTypeConfigInvalidated = "vertical.config_invalidated"
)

// ChangedEvent is published after a migration (or rollback) has fully
// succeeded: the vertical is committed and activation has completed
type ChangedEvent struct {
	shared.BaseDomainEvent
	TenantIDValue    uuid.UUID `json:"tenant_id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	PreviousVertical Vertical  `json:"previous_vertical"`
	NewVertical      Vertical  `json:"new_vertical"`
}

// NewChangedEvent creates a vertical changed event
func NewChangedEvent(tenantID, organizationID uuid.UUID, previous, next Vertical) *ChangedEvent {
	return &ChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeVerticalChanged, "tenant", tenantID),
		TenantIDValue:    tenantID,
		OrganizationID:   organizationID,
		PreviousVertical: previous,
		NewVertical:      next,
	}
}

// ConfigInvalidatedEvent is published when a tenant's resolved
// configuration has been purged from every cache tier
type ConfigInvalidatedEvent struct {
	shared.BaseDomainEvent
	TenantIDValue  uuid.UUID  `json:"tenant_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

// NewConfigInvalidatedEvent creates a config invalidated event
func NewConfigInvalidatedEvent(tenantID uuid.UUID, organizationID *uuid.UUID) *ConfigInvalidatedEvent {
	return &ConfigInvalidatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConfigInvalidated, "tenant", tenantID),
		TenantIDValue:   tenantID,
		OrganizationID:  organizationID,
	}
}
