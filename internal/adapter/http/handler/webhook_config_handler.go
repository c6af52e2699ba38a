package handler

import (
	"thirdplace-webhooks/internal/adapter/http/dto"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"
	"thirdplace-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookConfigHandler handles webhook endpoint management.
type WebhookConfigHandler struct {
	configSvc ports.WebhookConfigService
}

// NewWebhookConfigHandler creates a new WebhookConfigHandler.
func NewWebhookConfigHandler(configSvc ports.WebhookConfigService) *WebhookConfigHandler {
	return &WebhookConfigHandler{configSvc: configSvc}
}

// Create handles POST /api/v1/webhooks.
func (h *WebhookConfigHandler) Create(c *gin.Context) {
	var req dto.CreateWebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	cfg, err := h.configSvc.Create(c.Request.Context(), ports.CreateConfigRequest{
		Name:      req.Name,
		URL:       req.URL,
		Events:    req.Events,
		SecretKey: req.SecretKey,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToWebhookConfigResponse(cfg))
}

// Get handles GET /api/v1/webhooks/:id.
func (h *WebhookConfigHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid config id"))
		return
	}

	cfg, err := h.configSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToWebhookConfigResponse(cfg))
}

// List handles GET /api/v1/webhooks.
func (h *WebhookConfigHandler) List(c *gin.Context) {
	configs, err := h.configSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WebhookConfigResponse, 0, len(configs))
	for i := range configs {
		items = append(items, dto.ToWebhookConfigResponse(&configs[i]))
	}
	response.OK(c, items)
}

// Update handles PUT /api/v1/webhooks/:id.
func (h *WebhookConfigHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid config id"))
		return
	}

	var req dto.UpdateWebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	cfg, err := h.configSvc.Update(c.Request.Context(), id, ports.UpdateConfigRequest{
		Name:      req.Name,
		URL:       req.URL,
		Events:    req.Events,
		SecretKey: req.SecretKey,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToWebhookConfigResponse(cfg))
}

// Delete handles DELETE /api/v1/webhooks/:id.
func (h *WebhookConfigHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid config id"))
		return
	}

	if err := h.configSvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": id.String()})
}

// SendTest handles POST /api/v1/webhooks/:id/test.
func (h *WebhookConfigHandler) SendTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid config id"))
		return
	}

	d, err := h.configSvc.SendTest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ToDeliveryResponse(d)
	response.Created(c, resp)
}
