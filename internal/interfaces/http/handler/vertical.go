package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appvertical "github.com/verticore/backend/internal/application/vertical"
	"github.com/verticore/backend/internal/domain/vertical"
	"github.com/verticore/backend/internal/interfaces/http/dto"
)

// VerticalHandler exposes vertical migration, configuration and webhook endpoints
type VerticalHandler struct {
	BaseHandler
	compatibility *appvertical.CompatibilityService
	migrations    *appvertical.MigrationService
	configs       *appvertical.ConfigService
	audits        vertical.AuditRepository
	alerts        vertical.AlertRepository
	webhooks      *appvertical.WebhookDispatcher
	logger        *zap.Logger
}

// NewVerticalHandler creates a new vertical handler
func NewVerticalHandler(
	compatibility *appvertical.CompatibilityService,
	migrations *appvertical.MigrationService,
	configs *appvertical.ConfigService,
	audits vertical.AuditRepository,
	alerts vertical.AlertRepository,
	webhooks *appvertical.WebhookDispatcher,
	logger *zap.Logger,
) *VerticalHandler {
	return &VerticalHandler{
		compatibility: compatibility,
		migrations:    migrations,
		configs:       configs,
		audits:        audits,
		alerts:        alerts,
		webhooks:      webhooks,
		logger:        logger,
	}
}

// RegisterRoutes registers vertical routes
func (h *VerticalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tenants := rg.Group("/tenants/:tenantId/vertical")
	{
		tenants.POST("/check", h.CheckCompatibility)
		tenants.POST("/change", h.ChangeVertical)
		tenants.POST("/rollback", h.Rollback)
		tenants.GET("/config", h.GetConfig)
		tenants.GET("/features", h.GetFeatures)
		tenants.GET("/features/:feature", h.GetFeature)
		tenants.GET("/override", h.GetOverride)
		tenants.PUT("/override", h.PutOverride)
		tenants.DELETE("/override", h.DeleteOverride)
		tenants.PUT("/schema-enforcement", h.SetSchemaEnforcement)
		tenants.GET("/audits", h.ListAudits)
		tenants.GET("/alerts", h.ListAlerts)
	}

	cache := rg.Group("/vertical/cache")
	{
		cache.POST("/invalidate", h.InvalidateCache)
		cache.POST("/warmup", h.WarmupCache)
	}

	webhooks := rg.Group("/organizations/:orgId/vertical-webhooks")
	{
		webhooks.GET("", h.ListWebhooks)
		webhooks.POST("", h.RegisterWebhook)
		webhooks.DELETE("", h.UnregisterWebhook)
	}
	rg.POST("/vertical-webhooks/test", h.TestWebhook)
}

type checkCompatibilityRequest struct {
	FromVertical string `json:"from_vertical" binding:"required"`
	ToVertical   string `json:"to_vertical" binding:"required"`
}

type changeVerticalRequest struct {
	FromVertical string   `json:"from_vertical" binding:"required"`
	ToVertical   string   `json:"to_vertical" binding:"required"`
	Reason       string   `json:"reason"`
	Warnings     []string `json:"warnings"`
}

type registerWebhookRequest struct {
	URL     string            `json:"url" binding:"required,url"`
	Headers map[string]string `json:"headers"`
	Retries int               `json:"retries" binding:"omitempty,min=1,max=10"`
}

type testWebhookRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// CheckCompatibility reports blockers, warnings and data impact for a
// prospective vertical change without touching any data
func (h *VerticalHandler) CheckCompatibility(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req checkCompatibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	from, to, err := parseTransition(req.FromVertical, req.ToVertical)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.compatibility.Check(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ChangeVertical performs the full migration sequence for a tenant
func (h *VerticalHandler) ChangeVertical(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "A valid X-User-ID header is required")
		return
	}

	var req changeVerticalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	from, to, err := parseTransition(req.FromVertical, req.ToVertical)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	err = h.migrations.ChangeVertical(c.Request.Context(), appvertical.ChangeVerticalParams{
		TenantID:     tenantID,
		ActorID:      actorID,
		FromVertical: from,
		ToVertical:   to,
		Warnings:     req.Warnings,
		Reason:       req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("vertical changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("actor_id", actorID.String()),
	)
	h.Success(c, gin.H{
		"tenant_id":         tenantID,
		"previous_vertical": from,
		"new_vertical":      to,
	})
}

// Rollback restores the tenant to its most recent snapshot
func (h *VerticalHandler) Rollback(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "A valid X-User-ID header is required")
		return
	}

	restored, err := h.migrations.Rollback(c.Request.Context(), tenantID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("vertical rolled back",
		zap.String("tenant_id", tenantID.String()),
		zap.String("restored", restored.String()),
	)
	h.Success(c, gin.H{
		"tenant_id":         tenantID,
		"restored_vertical": restored,
	})
}

// GetConfig returns the tenant's resolved vertical configuration
func (h *VerticalHandler) GetConfig(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	config, err := h.configs.GetConfig(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, config)
}

// GetFeatures returns the tenant's resolved feature map
func (h *VerticalHandler) GetFeatures(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	features, err := h.configs.GetFeatures(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, features)
}

// GetFeature reports whether a single feature is enabled for the tenant
func (h *VerticalHandler) GetFeature(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	feature := c.Param("feature")
	enabled, err := h.configs.IsFeatureEnabled(c.Request.Context(), tenantID, feature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"feature": feature, "enabled": enabled})
}

// GetOverride returns the tenant's stored configuration override
func (h *VerticalHandler) GetOverride(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	override, err := h.configs.GetOverride(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"tenant_id": tenantID, "override": override})
}

// PutOverride stores the tenant's configuration override
func (h *VerticalHandler) PutOverride(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var override vertical.ConfigOverride
	if err := c.ShouldBindJSON(&override); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.configs.SetOverride(c.Request.Context(), tenantID, &override); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"tenant_id": tenantID, "override": override})
}

// DeleteOverride removes the tenant's configuration override
func (h *VerticalHandler) DeleteOverride(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := h.configs.DeleteOverride(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

type schemaEnforcementRequest struct {
	Enforced *bool `json:"enforced" binding:"required"`
}

// SetSchemaEnforcement toggles strict product schema validation
func (h *VerticalHandler) SetSchemaEnforcement(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req schemaEnforcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.configs.SetSchemaEnforcement(c.Request.Context(), tenantID, *req.Enforced); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"tenant_id": tenantID, "enforced": *req.Enforced})
}

// ListAudits returns the most recent vertical change audit records
func (h *VerticalHandler) ListAudits(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	limit, ok := h.listLimit(c)
	if !ok {
		return
	}

	records, err := h.audits.ListByTenant(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// ListAlerts returns the most recent change alerts for the tenant
func (h *VerticalHandler) ListAlerts(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	limit, ok := h.listLimit(c)
	if !ok {
		return
	}

	alerts, err := h.alerts.ListByTenant(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alerts)
}

func (h *VerticalHandler) listLimit(c *gin.Context) (int, bool) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.BadRequest(c, "limit must be an integer between 1 and 500")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

type cacheBatchRequest struct {
	TenantIDs []uuid.UUID `json:"tenant_ids" binding:"required,min=1"`
}

// InvalidateCache purges cached configuration for the given tenants
func (h *VerticalHandler) InvalidateCache(c *gin.Context) {
	var req cacheBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.configs.InvalidateBatch(c.Request.Context(), req.TenantIDs)
	h.Success(c, gin.H{"invalidated": len(req.TenantIDs)})
}

// WarmupCache pre-resolves configuration for the given tenants
func (h *VerticalHandler) WarmupCache(c *gin.Context) {
	var req cacheBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.configs.WarmupCache(c.Request.Context(), req.TenantIDs)
	h.Success(c, gin.H{"warmed": len(req.TenantIDs)})
}

// RegisterWebhook registers a webhook target for vertical change events
func (h *VerticalHandler) RegisterWebhook(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	var req registerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.webhooks.Register(orgID, appvertical.WebhookRegistration{
		URL:     req.URL,
		Headers: req.Headers,
		Retries: req.Retries,
	})
	h.Created(c, gin.H{"url": req.URL})
}

// UnregisterWebhook removes a webhook target
func (h *VerticalHandler) UnregisterWebhook(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	url := c.Query("url")
	if url == "" {
		h.BadRequest(c, "url query parameter is required")
		return
	}

	h.webhooks.Unregister(orgID, url)
	h.NoContent(c)
}

// ListWebhooks returns the organization's registered webhook targets
func (h *VerticalHandler) ListWebhooks(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}
	h.Success(c, h.webhooks.Registrations(orgID))
}

// TestWebhook sends a test request to a webhook URL
func (h *VerticalHandler) TestWebhook(c *gin.Context) {
	var req testWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ok, message := h.webhooks.TestWebhook(c.Request.Context(), req.URL)
	h.Success(c, gin.H{"success": ok, "message": message})
}

func (h *VerticalHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.TenantIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "tenantId must be a valid UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "tenantId must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *VerticalHandler) organizationID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.OrganizationIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "orgId must be a valid UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		h.BadRequest(c, "orgId must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseTransition(from, to string) (vertical.Vertical, vertical.Vertical, error) {
	parsedFrom, err := vertical.ParseVertical(from)
	if err != nil {
		return "", "", err
	}
	parsedTo, err := vertical.ParseVertical(to)
	if err != nil {
		return "", "", err
	}
	return parsedFrom, parsedTo, nil
}
