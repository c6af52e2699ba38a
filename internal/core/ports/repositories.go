package ports

import (
	"context"

	"thirdplace-webhooks/internal/core/domain"

	"github.com/google/uuid"
)

// WebhookConfigRepository defines persistence operations for webhook
// configurations. The dispatcher never writes configs; mutation belongs to
// the management API.
type WebhookConfigRepository interface {
	Create(ctx context.Context, cfg *domain.WebhookConfig) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	List(ctx context.Context) ([]domain.WebhookConfig, error)
	// ListActiveByEvent returns active configs subscribed to eventType.
	ListActiveByEvent(ctx context.Context, eventType string) ([]domain.WebhookConfig, error)
	Update(ctx context.Context, cfg *domain.WebhookConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// WebhookDeliveryRepository defines persistence for the delivery queue.
// Rows are never deleted; terminal rows remain as the audit trail.
type WebhookDeliveryRepository interface {
	Create(ctx context.Context, d *domain.WebhookDelivery) error
	CreateBatch(ctx context.Context, ds []*domain.WebhookDelivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error)
	// SelectPendingBatch returns up to limit pending deliveries with
	// attempts below the ceiling, joined with their active config's
	// destination fields, oldest first.
	SelectPendingBatch(ctx context.Context, limit int) ([]domain.DeliveryJob, error)
	// MarkDelivered records a successful attempt and makes the row terminal.
	MarkDelivered(ctx context.Context, id uuid.UUID, attempts int, responseStatus int, responseBody string) error
	// MarkFailedOrRetry records a failed attempt. The row becomes terminal
	// (failed) once attempts reaches the ceiling, otherwise stays pending.
	MarkFailedOrRetry(ctx context.Context, id uuid.UUID, attempts int, responseStatus *int, errorMessage string) error
	List(ctx context.Context, params DeliveryListParams) ([]domain.WebhookDelivery, int64, error)
	GetStats(ctx context.Context, configID *uuid.UUID) (*DeliveryStats, error)
}

// DeliveryListParams holds filter + pagination for listing deliveries.
type DeliveryListParams struct {
	ConfigID *uuid.UUID
	Status   *domain.DeliveryStatus
	Page     int
	PageSize int
}

// DeliveryStats holds per-status delivery counts for the dashboard.
type DeliveryStats struct {
	Total     int64
	Pending   int64
	Delivered int64
	Failed    int64
	Exhausted int64 // failed rows that hit the attempt ceiling
}

// AdminRepository defines persistence operations for administrator accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.AdminUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error)
}
