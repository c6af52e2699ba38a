package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// publisherService implements ports.PublisherService. It is the producer
// side of the delivery queue: one pending row per active subscribed config.
type publisherService struct {
	configRepo   ports.WebhookConfigRepository
	deliveryRepo ports.WebhookDeliveryRepository
	log          zerolog.Logger
}

// NewPublisherService creates a new event publisher.
func NewPublisherService(
	configRepo ports.WebhookConfigRepository,
	deliveryRepo ports.WebhookDeliveryRepository,
	log zerolog.Logger,
) ports.PublisherService {
	return &publisherService{
		configRepo:   configRepo,
		deliveryRepo: deliveryRepo,
		log:          log,
	}
}

// Publish fans eventType out to every active subscribed config. The payload
// bytes are stored verbatim; the dispatcher signs and sends those exact bytes.
func (s *publisherService) Publish(ctx context.Context, eventType string, payload json.RawMessage) (int, error) {
	if !domain.IsKnownEventType(eventType) {
		return 0, apperror.ErrUnknownEventType(eventType)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return 0, apperror.Validation("payload must be valid JSON")
	}

	configs, err := s.configRepo.ListActiveByEvent(ctx, eventType)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("listing subscribed configs: %w", err))
	}
	if len(configs) == 0 {
		s.log.Debug().Str("event_type", eventType).Msg("no active subscribers, nothing enqueued")
		return 0, nil
	}

	now := time.Now().UTC()
	deliveries := make([]*domain.WebhookDelivery, 0, len(configs))
	for _, cfg := range configs {
		deliveries = append(deliveries, &domain.WebhookDelivery{
			ID:              uuid.New(),
			WebhookConfigID: cfg.ID,
			EventType:       eventType,
			Payload:         payload,
			Status:          domain.DeliveryStatusPending,
			Attempts:        0,
			CreatedAt:       now,
		})
	}

	if err := s.deliveryRepo.CreateBatch(ctx, deliveries); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("enqueueing deliveries: %w", err))
	}

	s.log.Info().
		Str("event_type", eventType).
		Int("fan_out", len(deliveries)).
		Msg("event published")

	return len(deliveries), nil
}
