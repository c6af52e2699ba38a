package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// webhookConfigService implements ports.WebhookConfigService.
type webhookConfigService struct {
	configRepo   ports.WebhookConfigRepository
	deliveryRepo ports.WebhookDeliveryRepository
	encSvc       ports.EncryptionService
	log          zerolog.Logger
}

// NewWebhookConfigService creates the configuration management service.
func NewWebhookConfigService(
	configRepo ports.WebhookConfigRepository,
	deliveryRepo ports.WebhookDeliveryRepository,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) ports.WebhookConfigService {
	return &webhookConfigService{
		configRepo:   configRepo,
		deliveryRepo: deliveryRepo,
		encSvc:       encSvc,
		log:          log,
	}
}

func (s *webhookConfigService) Create(ctx context.Context, req ports.CreateConfigRequest) (*domain.WebhookConfig, error) {
	if err := validateEndpoint(req.URL, req.Events); err != nil {
		return nil, err
	}

	var secretEnc *string
	if req.SecretKey != nil && *req.SecretKey != "" {
		enc, err := s.encSvc.Encrypt(*req.SecretKey)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
		secretEnc = &enc
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := time.Now().UTC()
	cfg := &domain.WebhookConfig{
		ID:           uuid.New(),
		Name:         req.Name,
		URL:          req.URL,
		Events:       req.Events,
		SecretKeyEnc: secretEnc,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.configRepo.Create(ctx, cfg); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("creating webhook config: %w", err))
	}

	s.log.Info().Str("config_id", cfg.ID.String()).Str("url", cfg.URL).Msg("webhook config created")
	return cfg, nil
}

func (s *webhookConfigService) Get(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	cfg, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetching webhook config: %w", err))
	}
	if cfg == nil {
		return nil, apperror.ErrConfigNotFound()
	}
	return cfg, nil
}

func (s *webhookConfigService) List(ctx context.Context) ([]domain.WebhookConfig, error) {
	configs, err := s.configRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("listing webhook configs: %w", err))
	}
	return configs, nil
}

func (s *webhookConfigService) Update(ctx context.Context, id uuid.UUID, req ports.UpdateConfigRequest) (*domain.WebhookConfig, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		cfg.Name = *req.Name
	}
	if req.URL != nil {
		cfg.URL = *req.URL
	}
	if req.Events != nil {
		cfg.Events = req.Events
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.SecretKey != nil {
		if *req.SecretKey == "" {
			cfg.SecretKeyEnc = nil
		} else {
			enc, err := s.encSvc.Encrypt(*req.SecretKey)
			if err != nil {
				return nil, apperror.ErrEncryptionFailure(err)
			}
			cfg.SecretKeyEnc = &enc
		}
	}

	if err := validateEndpoint(cfg.URL, cfg.Events); err != nil {
		return nil, err
	}

	cfg.UpdatedAt = time.Now().UTC()
	if err := s.configRepo.Update(ctx, cfg); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("updating webhook config: %w", err))
	}

	s.log.Info().Str("config_id", cfg.ID.String()).Msg("webhook config updated")
	return cfg, nil
}

func (s *webhookConfigService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.configRepo.Delete(ctx, id); err != nil {
		return apperror.InternalError(fmt.Errorf("deleting webhook config: %w", err))
	}
	s.log.Info().Str("config_id", id.String()).Msg("webhook config deleted")
	return nil
}

// SendTest enqueues a webhook.test delivery for one config, regardless of
// its subscriptions, so an operator can verify the endpoint end to end.
func (s *webhookConfigService) SendTest(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, apperror.ErrConfigInactive()
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event_type": domain.EventWebhookTest,
		"config_id":  cfg.ID.String(),
		"message":    "test delivery from thirdplace-webhooks",
		"timestamp":  time.Now().Unix(),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshaling test payload: %w", err))
	}

	delivery := &domain.WebhookDelivery{
		ID:              uuid.New(),
		WebhookConfigID: cfg.ID,
		EventType:       domain.EventWebhookTest,
		Payload:         payload,
		Status:          domain.DeliveryStatusPending,
		Attempts:        0,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("enqueueing test delivery: %w", err))
	}

	s.log.Info().Str("config_id", cfg.ID.String()).Str("delivery_id", delivery.ID.String()).Msg("test delivery enqueued")
	return delivery, nil
}

// validateEndpoint checks the destination URL and event subscription set.
func validateEndpoint(rawURL string, events []string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.Validation("url must be a valid http(s) URL")
	}
	if len(events) == 0 {
		return apperror.Validation("at least one subscribed event is required")
	}
	for _, e := range events {
		if !domain.IsKnownEventType(e) {
			return apperror.ErrUnknownEventType(e)
		}
	}
	return nil
}
