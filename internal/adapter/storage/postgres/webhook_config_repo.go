package postgres

import (
	"context"
	"errors"
	"fmt"

	"thirdplace-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookConfigRepo implements ports.WebhookConfigRepository.
type WebhookConfigRepo struct {
	pool Pool
}

// NewWebhookConfigRepo creates a new WebhookConfigRepo.
func NewWebhookConfigRepo(pool Pool) *WebhookConfigRepo {
	return &WebhookConfigRepo{pool: pool}
}

const webhookConfigColumns = `id, name, url, events, secret_key_enc, is_active, created_at, updated_at`

// Create inserts a new webhook config.
func (r *WebhookConfigRepo) Create(ctx context.Context, cfg *domain.WebhookConfig) error {
	query := `INSERT INTO webhook_configs (id, name, url, events, secret_key_enc, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		cfg.ID, cfg.Name, cfg.URL, cfg.Events,
		cfg.SecretKeyEnc, cfg.IsActive, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook config: %w", err)
	}
	return nil
}

// GetByID fetches a webhook config by its UUID.
func (r *WebhookConfigRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_configs WHERE id = $1`, webhookConfigColumns)

	cfg, err := r.scanConfig(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get webhook config by id: %w", err)
	}
	return cfg, nil
}

// List returns every webhook config, newest first.
func (r *WebhookConfigRepo) List(ctx context.Context) ([]domain.WebhookConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_configs ORDER BY created_at DESC`, webhookConfigColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list webhook configs: %w", err)
	}
	defer rows.Close()

	return r.collectConfigs(rows)
}

// ListActiveByEvent returns active configs whose subscription set contains
// eventType. Used by the publisher to fan an event out.
func (r *WebhookConfigRepo) ListActiveByEvent(ctx context.Context, eventType string) ([]domain.WebhookConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_configs
		WHERE is_active AND $1 = ANY(events)
		ORDER BY created_at ASC`, webhookConfigColumns)

	rows, err := r.pool.Query(ctx, query, eventType)
	if err != nil {
		return nil, fmt.Errorf("list configs by event: %w", err)
	}
	defer rows.Close()

	return r.collectConfigs(rows)
}

// Update updates a webhook config record.
func (r *WebhookConfigRepo) Update(ctx context.Context, cfg *domain.WebhookConfig) error {
	query := `UPDATE webhook_configs
		SET name=$1, url=$2, events=$3, secret_key_enc=$4, is_active=$5, updated_at=$6
		WHERE id=$7`

	tag, err := r.pool.Exec(ctx, query,
		cfg.Name, cfg.URL, cfg.Events, cfg.SecretKeyEnc, cfg.IsActive, cfg.UpdatedAt, cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook config not found: %s", cfg.ID)
	}
	return nil
}

// Delete removes a webhook config. Delivery rows keep their config ID for
// the audit trail; the FK is ON DELETE CASCADE only for pending rows.
func (r *WebhookConfigRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook config not found: %s", id)
	}
	return nil
}

// scanConfig scans a single row into a WebhookConfig.
func (r *WebhookConfigRepo) scanConfig(row pgx.Row) (*domain.WebhookConfig, error) {
	cfg := &domain.WebhookConfig{}
	err := row.Scan(
		&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Events,
		&cfg.SecretKeyEnc, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

func (r *WebhookConfigRepo) collectConfigs(rows pgx.Rows) ([]domain.WebhookConfig, error) {
	var configs []domain.WebhookConfig
	for rows.Next() {
		cfg := domain.WebhookConfig{}
		err := rows.Scan(
			&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Events,
			&cfg.SecretKeyEnc, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan webhook config row: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook config rows: %w", err)
	}
	return configs, nil
}
