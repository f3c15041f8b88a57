// Package webhook receives lead records pushed by external systems and
// feeds them to the lead reconciler.
package webhook

import (
	apphttp "franchise_crm_backend/internal/http"
	"franchise_crm_backend/platform/config"
	"franchise_crm_backend/platform/httpkit"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	secret  string
	limiter *httpkit.IPRateLimiter
}

// NewModule creates the webhook module. enqueuer and guard may be nil.
func NewModule(reconciler Reconciler, enqueuer Enqueuer, guard DeliveryGuard, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(reconciler, enqueuer, guard, log)
	return &Module{
		handler: NewHandler(service, val),
		service: service,
		secret:  cfg.GetWebhookSecret(),
		limiter: httpkit.NewIPRateLimiter(cfg.GetWebhookRatePerMinute(), log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Service returns the webhook service for the background worker.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(m.limiter.RateLimit(), SharedSecretMiddleware(m.secret))
	group.POST("/leads", m.handler.HandleLeadWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
