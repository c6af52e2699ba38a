package handler

import (
	"thirdplace-webhooks/internal/adapter/http/dto"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"
	"thirdplace-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
)

// DispatchHandler handles the internal trigger endpoints used by the
// scheduler and the application backend.
type DispatchHandler struct {
	dispatchSvc  ports.DispatchService
	publisherSvc ports.PublisherService
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(dispatchSvc ports.DispatchService, publisherSvc ports.PublisherService) *DispatchHandler {
	return &DispatchHandler{dispatchSvc: dispatchSvc, publisherSvc: publisherSvc}
}

// RunCycle handles POST /internal/dispatch. Each call drains one batch of
// the pending queue and reports what happened; callers invoke it on a
// schedule.
func (h *DispatchHandler) RunCycle(c *gin.Context) {
	summary, err := h.dispatchSvc.RunCycle(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DispatchCycleResponse{
		Processed: summary.Processed,
		Failed:    summary.Failed,
		Total:     summary.Total,
	})
}

// PublishEvent handles POST /internal/events. The application backend posts
// each domain event here; the payload is stored verbatim and later signed
// and sent byte for byte.
func (h *DispatchHandler) PublishEvent(c *gin.Context) {
	var req dto.PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	fanOut, err := h.publisherSvc.Publish(c.Request.Context(), req.EventType, req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.PublishEventResponse{
		EventType: req.EventType,
		FanOut:    fanOut,
	})
}
