package handler

import (
	"math"
	"strconv"

	"thirdplace-webhooks/internal/adapter/http/dto"
	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"
	"thirdplace-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeliveryHandler handles the delivery history and stats endpoints.
type DeliveryHandler struct {
	reportingSvc ports.ReportingService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(reportingSvc ports.ReportingService) *DeliveryHandler {
	return &DeliveryHandler{reportingSvc: reportingSvc}
}

// List handles GET /api/v1/deliveries.
func (h *DeliveryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.DeliveryListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if s := c.Query("status"); s != "" {
		status := domain.DeliveryStatus(s)
		if status != domain.DeliveryStatusPending &&
			status != domain.DeliveryStatusDelivered &&
			status != domain.DeliveryStatusFailed {
			response.Error(c, apperror.Validation("invalid status filter"))
			return
		}
		params.Status = &status
	}
	if cid := c.Query("config_id"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			response.Error(c, apperror.Validation("invalid config_id filter"))
			return
		}
		params.ConfigID = &id
	}

	deliveries, total, err := h.reportingSvc.ListDeliveries(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.DeliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		items = append(items, dto.ToDeliveryResponse(&deliveries[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.DeliveryListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// GetStats handles GET /api/v1/deliveries/stats.
func (h *DeliveryHandler) GetStats(c *gin.Context) {
	var configID *uuid.UUID
	if cid := c.Query("config_id"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			response.Error(c, apperror.Validation("invalid config_id filter"))
			return
		}
		configID = &id
	}

	stats, err := h.reportingSvc.GetStats(c.Request.Context(), configID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DeliveryStatsResponse{
		Total:     stats.Total,
		Pending:   stats.Pending,
		Delivered: stats.Delivered,
		Failed:    stats.Failed,
		Exhausted: stats.Exhausted,
	})
}
