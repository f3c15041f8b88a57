package webhook

import (
	"net/http"
	"strings"

	"franchise_crm_backend/internal/scheduler"
	"franchise_crm_backend/platform/httpkit"
	"franchise_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	headerDeliveryID  = "X-Delivery-ID"
)

// LeadWebhookRequest is one inbound record. Field names follow the import
// spreadsheet headers ("Etapa do lead", "Telefone", ...).
type LeadWebhookRequest struct {
	ExternalID string            `json:"externalId" validate:"max=200"`
	Fields     map[string]string `json:"fields" validate:"required,min=1,max=60,dive,keys,max=100,endkeys,max=4000"`
}

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleLeadWebhook accepts a lead record.
// POST /api/v1/webhook/leads
func (h *Handler) HandleLeadWebhook(c *gin.Context) {
	var req LeadWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, validator.FieldErrors(err))
		return
	}

	columns, err := normalizeColumns(req.Fields)
	if httpkit.HandleError(c, err) {
		return
	}

	resp, err := h.service.Accept(c.Request.Context(), scheduler.ReconcileLeadPayload{
		DeliveryID: strings.TrimSpace(c.GetHeader(headerDeliveryID)),
		ExternalID: req.ExternalID,
		Columns:    columns,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	if resp.Status == StatusReconciled {
		httpkit.OK(c, resp)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, resp)
}
