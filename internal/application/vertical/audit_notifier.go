package vertical

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
)

// AuditNotifier writes an informational alert row whenever a tenant's
// vertical changes. It subscribes after the migration has committed,
// so a failure here is logged and swallowed.
type AuditNotifier struct {
	alerts vertical.AlertRepository
	logger *zap.Logger
}

// NewAuditNotifier creates a new AuditNotifier
func NewAuditNotifier(alerts vertical.AlertRepository, logger *zap.Logger) *AuditNotifier {
	return &AuditNotifier{
		alerts: alerts,
		logger: logger,
	}
}

// Handle implements shared.EventHandler
func (n *AuditNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*vertical.ChangedEvent)
	if !ok {
		return nil
	}

	alert := vertical.NewVerticalChangeAlert(
		changed.TenantIDValue,
		changed.OrganizationID,
		fmt.Sprintf("Vertical changed from %s to %s", changed.PreviousVertical, changed.NewVertical),
	)
	if err := n.alerts.Create(ctx, alert); err != nil {
		n.logger.Warn("failed to write vertical change alert",
			zap.String("tenant_id", changed.TenantIDValue.String()),
			zap.Error(err),
		)
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (n *AuditNotifier) EventTypes() []string {
	return []string{vertical.EventTypeVerticalChanged}
}

var _ shared.EventHandler = (*AuditNotifier)(nil)
