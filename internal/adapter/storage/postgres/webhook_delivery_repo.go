package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookDeliveryRepo implements ports.WebhookDeliveryRepository.
type WebhookDeliveryRepo struct {
	pool Pool
}

// NewWebhookDeliveryRepo creates a new WebhookDeliveryRepo.
func NewWebhookDeliveryRepo(pool Pool) *WebhookDeliveryRepo {
	return &WebhookDeliveryRepo{pool: pool}
}

const deliveryColumns = `id, webhook_config_id, event_type, payload, status, attempts,
		last_attempt_at, response_status, response_body, error_message, created_at`

const insertDeliveryQuery = `INSERT INTO webhook_deliveries
		(id, webhook_config_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create inserts a single pending delivery.
func (r *WebhookDeliveryRepo) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	_, err := r.pool.Exec(ctx, insertDeliveryQuery,
		d.ID, d.WebhookConfigID, d.EventType, d.Payload, d.Status, d.Attempts, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

// CreateBatch inserts one pending delivery per subscribed config. Fan-out
// counts are small (bounded by the number of configs), so sequential
// inserts are fine.
func (r *WebhookDeliveryRepo) CreateBatch(ctx context.Context, ds []*domain.WebhookDelivery) error {
	for _, d := range ds {
		if err := r.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches a delivery by UUID.
func (r *WebhookDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_deliveries WHERE id = $1`, deliveryColumns)

	d := &domain.WebhookDelivery{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.WebhookConfigID, &d.EventType, &d.Payload, &d.Status, &d.Attempts,
		&d.LastAttemptAt, &d.ResponseStatus, &d.ResponseBody, &d.ErrorMessage, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook delivery by id: %w", err)
	}
	return d, nil
}

// SelectPendingBatch returns up to limit eligible deliveries joined with
// their active config's destination fields, oldest first. Rows whose config
// was deactivated or deleted simply stop being selected; they are not
// marked failed.
func (r *WebhookDeliveryRepo) SelectPendingBatch(ctx context.Context, limit int) ([]domain.DeliveryJob, error) {
	query := `SELECT d.id, d.webhook_config_id, d.event_type, d.payload, d.status, d.attempts,
		d.last_attempt_at, d.response_status, d.response_body, d.error_message, d.created_at,
		c.url, c.secret_key_enc
		FROM webhook_deliveries d
		JOIN webhook_configs c ON c.id = d.webhook_config_id
		WHERE d.status = 'pending' AND d.attempts < $1 AND c.is_active
		ORDER BY d.created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain.MaxDeliveryAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending deliveries: %w", err)
	}
	defer rows.Close()

	var jobs []domain.DeliveryJob
	for rows.Next() {
		job := domain.DeliveryJob{}
		d := &job.Delivery
		err := rows.Scan(
			&d.ID, &d.WebhookConfigID, &d.EventType, &d.Payload, &d.Status, &d.Attempts,
			&d.LastAttemptAt, &d.ResponseStatus, &d.ResponseBody, &d.ErrorMessage, &d.CreatedAt,
			&job.URL, &job.SecretKeyEnc,
		)
		if err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return jobs, nil
}

// MarkDelivered records a successful attempt. Delivered is terminal.
func (r *WebhookDeliveryRepo) MarkDelivered(ctx context.Context, id uuid.UUID, attempts int, responseStatus int, responseBody string) error {
	query := `UPDATE webhook_deliveries
		SET status = 'delivered', attempts = $1, last_attempt_at = NOW(),
			response_status = $2, response_body = $3, error_message = NULL
		WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, attempts, responseStatus, responseBody, id)
	if err != nil {
		return fmt.Errorf("mark delivery delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook delivery not found: %s", id)
	}
	return nil
}

// MarkFailedOrRetry records a failed attempt. The status transition to
// failed happens here, in one statement, once attempts reaches the ceiling.
func (r *WebhookDeliveryRepo) MarkFailedOrRetry(ctx context.Context, id uuid.UUID, attempts int, responseStatus *int, errorMessage string) error {
	query := `UPDATE webhook_deliveries
		SET status = CASE WHEN $1::int >= $2::int THEN 'failed' ELSE 'pending' END,
			attempts = $1, last_attempt_at = NOW(),
			response_status = $3, error_message = $4
		WHERE id = $5`

	tag, err := r.pool.Exec(ctx, query, attempts, domain.MaxDeliveryAttempts, responseStatus, errorMessage, id)
	if err != nil {
		return fmt.Errorf("mark delivery failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook delivery not found: %s", id)
	}
	return nil
}

// List fetches deliveries with filtering and pagination, newest first.
func (r *WebhookDeliveryRepo) List(ctx context.Context, params ports.DeliveryListParams) ([]domain.WebhookDelivery, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.ConfigID != nil {
		conditions = append(conditions, fmt.Sprintf("webhook_config_id = $%d", argIdx))
		args = append(args, *params.ConfigID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM webhook_deliveries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deliveries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM webhook_deliveries %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, deliveryColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []domain.WebhookDelivery
	for rows.Next() {
		d := domain.WebhookDelivery{}
		err := rows.Scan(
			&d.ID, &d.WebhookConfigID, &d.EventType, &d.Payload, &d.Status, &d.Attempts,
			&d.LastAttemptAt, &d.ResponseStatus, &d.ResponseBody, &d.ErrorMessage, &d.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan delivery row: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return deliveries, total, nil
}

// GetStats retrieves aggregated per-status delivery counts.
func (r *WebhookDeliveryRepo) GetStats(ctx context.Context, configID *uuid.UUID) (*ports.DeliveryStats, error) {
	var args []any
	condition := "TRUE"
	if configID != nil {
		condition = "webhook_config_id = $1"
		args = append(args, *configID)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
		COUNT(*) FILTER (WHERE status = 'failed') AS failed,
		COUNT(*) FILTER (WHERE status = 'failed' AND attempts >= %d) AS exhausted
		FROM webhook_deliveries WHERE %s`, domain.MaxDeliveryAttempts, condition)

	stats := &ports.DeliveryStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total, &stats.Pending, &stats.Delivered, &stats.Failed, &stats.Exhausted,
	)
	if err != nil {
		return nil, fmt.Errorf("get delivery stats: %w", err)
	}
	return stats, nil
}
