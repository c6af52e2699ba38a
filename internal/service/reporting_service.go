package service

import (
	"context"
	"fmt"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// reportingService implements ports.ReportingService over the delivery
// audit trail.
type reportingService struct {
	deliveryRepo ports.WebhookDeliveryRepository
}

// NewReportingService creates the delivery history/stats service.
func NewReportingService(deliveryRepo ports.WebhookDeliveryRepository) ports.ReportingService {
	return &reportingService{deliveryRepo: deliveryRepo}
}

func (s *reportingService) ListDeliveries(ctx context.Context, params ports.DeliveryListParams) ([]domain.WebhookDelivery, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	deliveries, total, err := s.deliveryRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("listing deliveries: %w", err))
	}
	return deliveries, total, nil
}

func (s *reportingService) GetStats(ctx context.Context, configID *uuid.UUID) (*ports.DeliveryStats, error) {
	stats, err := s.deliveryRepo.GetStats(ctx, configID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetching delivery stats: %w", err))
	}
	return stats, nil
}
