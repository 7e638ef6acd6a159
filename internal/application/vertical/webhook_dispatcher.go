package vertical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verticore/backend/internal/domain/shared"
	"github.com/verticore/backend/internal/domain/vertical"
)

const webhookUserAgent = "Verticore/1.0"

// WebhookRegistration is one outbound notification target for an
// organization
type WebhookRegistration struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Retries int               `json:"retries"`
	Timeout time.Duration     `json:"timeout"`
}

// WebhookPayload is the JSON body posted to registered URLs
type WebhookPayload struct {
	Event            string            `json:"event"`
	Timestamp        string            `json:"timestamp"`
	TenantID         uuid.UUID         `json:"tenant_id"`
	OrganizationID   uuid.UUID         `json:"organization_id"`
	PreviousVertical vertical.Vertical `json:"previous_vertical"`
	NewVertical      vertical.Vertical `json:"new_vertical"`
}

// WebhookDispatcherConfig bounds delivery behavior
type WebhookDispatcherConfig struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultWebhookDispatcherConfig returns the standard delivery bounds
func DefaultWebhookDispatcherConfig() WebhookDispatcherConfig {
	return WebhookDispatcherConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// WebhookDispatcher keeps a per-organization registry of outbound
// URLs and posts a notification to each one when a tenant's vertical
// changes. Delivery runs in detached goroutines with capped
// exponential backoff; it never blocks or fails the migration that
// triggered it.
type WebhookDispatcher struct {
	config WebhookDispatcherConfig
	client *http.Client
	logger *zap.Logger

	mu       sync.RWMutex
	registry map[uuid.UUID][]WebhookRegistration

	wg sync.WaitGroup
}

// WebhookDispatcherOption is a functional option for the dispatcher
type WebhookDispatcherOption func(*WebhookDispatcher)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) WebhookDispatcherOption {
	return func(d *WebhookDispatcher) {
		d.client = client
	}
}

// NewWebhookDispatcher creates a new WebhookDispatcher
func NewWebhookDispatcher(config WebhookDispatcherConfig, logger *zap.Logger, opts ...WebhookDispatcherOption) *WebhookDispatcher {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = time.Second
	}
	d := &WebhookDispatcher{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		logger:   logger,
		registry: make(map[uuid.UUID][]WebhookRegistration),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds an outbound URL for an organization
func (d *WebhookDispatcher) Register(organizationID uuid.UUID, registration WebhookRegistration) {
	if registration.Retries == 0 {
		registration.Retries = d.config.MaxRetries
	}
	if registration.Timeout == 0 {
		registration.Timeout = d.config.Timeout
	}

	d.mu.Lock()
	d.registry[organizationID] = append(d.registry[organizationID], registration)
	d.mu.Unlock()

	d.logger.Info("webhook registered",
		zap.String("organization_id", organizationID.String()),
		zap.String("url", registration.URL),
	)
}

// Unregister removes an outbound URL for an organization
func (d *WebhookDispatcher) Unregister(organizationID uuid.UUID, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing := d.registry[organizationID]
	filtered := existing[:0]
	for _, registration := range existing {
		if registration.URL != url {
			filtered = append(filtered, registration)
		}
	}
	if len(filtered) == 0 {
		delete(d.registry, organizationID)
	} else {
		d.registry[organizationID] = filtered
	}
}

// Registrations returns an organization's registered webhooks
func (d *WebhookDispatcher) Registrations(organizationID uuid.UUID) []WebhookRegistration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]WebhookRegistration(nil), d.registry[organizationID]...)
}

// Handle implements shared.EventHandler. Dispatch is fire-and-forget:
// Handle returns before any delivery attempt completes.
func (d *WebhookDispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*vertical.ChangedEvent)
	if !ok {
		return nil
	}

	targets := d.Registrations(changed.OrganizationID)
	if len(targets) == 0 {
		return nil
	}

	payload := WebhookPayload{
		Event:            vertical.EventTypeVerticalChanged,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		TenantID:         changed.TenantIDValue,
		OrganizationID:   changed.OrganizationID,
		PreviousVertical: changed.PreviousVertical,
		NewVertical:      changed.NewVertical,
	}

	for _, target := range targets {
		d.wg.Add(1)
		go func(target WebhookRegistration) {
			defer d.wg.Done()
			if err := d.deliver(target, payload); err != nil {
				d.logger.Error("webhook delivery failed after retries",
					zap.String("url", target.URL),
					zap.Error(err),
				)
			}
		}(target)
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (d *WebhookDispatcher) EventTypes() []string {
	return []string{vertical.EventTypeVerticalChanged}
}

// Wait blocks until all in-flight deliveries finish
func (d *WebhookDispatcher) Wait() {
	d.wg.Wait()
}

// deliver posts the payload with capped exponential backoff: the
// delay doubles from the base interval between attempts
func (d *WebhookDispatcher) deliver(target WebhookRegistration, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= target.Retries; attempt++ {
		lastErr = d.post(target, body, nil)
		if lastErr == nil {
			d.logger.Debug("webhook delivered",
				zap.String("url", target.URL),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		if attempt < target.Retries {
			delay := d.config.BaseDelay * (1 << (attempt - 1))
			d.logger.Warn("webhook delivery failed, retrying",
				zap.String("url", target.URL),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			time.Sleep(delay)
		}
	}
	return lastErr
}

// TestWebhook posts a synthetic payload to a URL so callers can
// validate a registration before relying on it
func (d *WebhookDispatcher) TestWebhook(ctx context.Context, url string) (bool, string) {
	payload := WebhookPayload{
		Event:            vertical.EventTypeVerticalChanged,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		PreviousVertical: vertical.General,
		NewVertical:      vertical.General,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, err.Error()
	}

	target := WebhookRegistration{URL: url, Timeout: d.config.Timeout}
	if err := d.post(target, body, map[string]string{"X-Webhook-Test": "true"}); err != nil {
		return false, err.Error()
	}
	return true, "Webhook test successful"
}

func (d *WebhookDispatcher) post(target WebhookRegistration, body []byte, extraHeaders map[string]string) error {
	ctx, cancel := context.WithTimeout(context.Background(), target.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	for name, value := range target.Headers {
		req.Header.Set(name, value)
	}
	for name, value := range extraHeaders {
		req.Header.Set(name, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return nil
}

var _ shared.EventHandler = (*WebhookDispatcher)(nil)
