package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Webhook Config Repo ---

type inMemoryConfigRepo struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]*domain.WebhookConfig
}

func newInMemoryConfigRepo() *inMemoryConfigRepo {
	return &inMemoryConfigRepo{configs: make(map[uuid.UUID]*domain.WebhookConfig)}
}

func (r *inMemoryConfigRepo) Create(ctx context.Context, cfg *domain.WebhookConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cfg
	r.configs[cfg.ID] = &cp
	return nil
}

func (r *inMemoryConfigRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (r *inMemoryConfigRepo) List(ctx context.Context) ([]domain.WebhookConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WebhookConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, *cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryConfigRepo) ListActiveByEvent(ctx context.Context, eventType string) ([]domain.WebhookConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookConfig
	for _, cfg := range r.configs {
		if cfg.IsActive && cfg.IsSubscribed(eventType) {
			out = append(out, *cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryConfigRepo) Update(ctx context.Context, cfg *domain.WebhookConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ID]; !ok {
		return fmt.Errorf("config %s not found", cfg.ID)
	}
	cp := *cfg
	r.configs[cfg.ID] = &cp
	return nil
}

func (r *inMemoryConfigRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[id]; !ok {
		return fmt.Errorf("config %s not found", id)
	}
	delete(r.configs, id)
	return nil
}

// --- In-Memory Webhook Delivery Repo ---

// inMemoryDeliveryRepo keeps the queue in insertion structures mirroring the
// SQL schema: rows are never removed, status transitions mirror the
// MarkDelivered / MarkFailedOrRetry queries.
type inMemoryDeliveryRepo struct {
	mu         sync.RWMutex
	deliveries map[uuid.UUID]*domain.WebhookDelivery
	configs    *inMemoryConfigRepo
}

func newInMemoryDeliveryRepo(configs *inMemoryConfigRepo) *inMemoryDeliveryRepo {
	return &inMemoryDeliveryRepo{
		deliveries: make(map[uuid.UUID]*domain.WebhookDelivery),
		configs:    configs,
	}
}

func (r *inMemoryDeliveryRepo) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *inMemoryDeliveryRepo) CreateBatch(ctx context.Context, ds []*domain.WebhookDelivery) error {
	for _, d := range ds {
		if err := r.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *inMemoryDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDeliveryRepo) SelectPendingBatch(ctx context.Context, limit int) ([]domain.DeliveryJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.configs.mu.RLock()
	defer r.configs.mu.RUnlock()

	var jobs []domain.DeliveryJob
	for _, d := range r.deliveries {
		if d.Status != domain.DeliveryStatusPending || d.Attempts >= domain.MaxDeliveryAttempts {
			continue
		}
		cfg, ok := r.configs.configs[d.WebhookConfigID]
		if !ok || !cfg.IsActive {
			continue
		}
		jobs = append(jobs, domain.DeliveryJob{
			Delivery:     *d,
			URL:          cfg.URL,
			SecretKeyEnc: cfg.SecretKeyEnc,
		})
	}

	// Oldest first, same as the ORDER BY created_at ASC selection.
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Delivery.CreatedAt.Before(jobs[j].Delivery.CreatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *inMemoryDeliveryRepo) MarkDelivered(ctx context.Context, id uuid.UUID, attempts int, responseStatus int, responseBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("delivery %s not found", id)
	}
	now := time.Now()
	d.Status = domain.DeliveryStatusDelivered
	d.Attempts = attempts
	d.LastAttemptAt = &now
	d.ResponseStatus = &responseStatus
	d.ResponseBody = &responseBody
	d.ErrorMessage = nil
	return nil
}

func (r *inMemoryDeliveryRepo) MarkFailedOrRetry(ctx context.Context, id uuid.UUID, attempts int, responseStatus *int, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("delivery %s not found", id)
	}
	now := time.Now()
	d.Attempts = attempts
	d.LastAttemptAt = &now
	d.ResponseStatus = responseStatus
	d.ErrorMessage = &errorMessage
	if attempts >= domain.MaxDeliveryAttempts {
		d.Status = domain.DeliveryStatusFailed
	} else {
		d.Status = domain.DeliveryStatusPending
	}
	return nil
}

func (r *inMemoryDeliveryRepo) List(ctx context.Context, params ports.DeliveryListParams) ([]domain.WebhookDelivery, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.WebhookDelivery
	for _, d := range r.deliveries {
		if params.ConfigID != nil && d.WebhookConfigID != *params.ConfigID {
			continue
		}
		if params.Status != nil && d.Status != *params.Status {
			continue
		}
		matched = append(matched, *d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	offset := (params.Page - 1) * params.PageSize
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *inMemoryDeliveryRepo) GetStats(ctx context.Context, configID *uuid.UUID) (*ports.DeliveryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ports.DeliveryStats{}
	for _, d := range r.deliveries {
		if configID != nil && d.WebhookConfigID != *configID {
			continue
		}
		stats.Total++
		switch d.Status {
		case domain.DeliveryStatusPending:
			stats.Pending++
		case domain.DeliveryStatusDelivered:
			stats.Delivered++
		case domain.DeliveryStatusFailed:
			stats.Failed++
			if d.Attempts >= domain.MaxDeliveryAttempts {
				stats.Exhausted++
			}
		}
	}
	return stats, nil
}

// --- In-Memory Admin Repo ---

type inMemoryAdminRepo struct {
	mu     sync.RWMutex
	admins map[uuid.UUID]*domain.AdminUser
}

func newInMemoryAdminRepo() *inMemoryAdminRepo {
	return &inMemoryAdminRepo{admins: make(map[uuid.UUID]*domain.AdminUser)}
}

func (r *inMemoryAdminRepo) Create(ctx context.Context, admin *domain.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *admin
	r.admins[admin.ID] = &cp
	return nil
}

func (r *inMemoryAdminRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAdminRepo) GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}
