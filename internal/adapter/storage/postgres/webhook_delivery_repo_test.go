package postgres

import (
	"context"
	"testing"
	"time"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDelivery() *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		ID:              uuid.New(),
		WebhookConfigID: uuid.New(),
		EventType:       domain.EventRegistrationConfirmed,
		Payload:         []byte(`{"registration_id":"r-1"}`),
		Status:          domain.DeliveryStatusPending,
		Attempts:        0,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

func deliveryColumnNames() []string {
	return []string{"id", "webhook_config_id", "event_type", "payload", "status", "attempts",
		"last_attempt_at", "response_status", "response_body", "error_message", "created_at"}
}

func TestWebhookDeliveryRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	d := newTestDelivery()

	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WithArgs(d.ID, d.WebhookConfigID, d.EventType, d.Payload, d.Status, d.Attempts, d.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_CreateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	a := newTestDelivery()
	b := newTestDelivery()

	for _, d := range []*domain.WebhookDelivery{a, b} {
		mock.ExpectExec("INSERT INTO webhook_deliveries").
			WithArgs(d.ID, d.WebhookConfigID, d.EventType, d.Payload, d.Status, d.Attempts, d.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	err = repo.CreateBatch(context.Background(), []*domain.WebhookDelivery{a, b})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_SelectPendingBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	d := newTestDelivery()
	secretEnc := strPtr("encrypted_secret")

	cols := append(deliveryColumnNames(), "url", "secret_key_enc")
	rows := pgxmock.NewRows(cols).AddRow(
		d.ID, d.WebhookConfigID, d.EventType, d.Payload, d.Status, d.Attempts,
		d.LastAttemptAt, d.ResponseStatus, d.ResponseBody, d.ErrorMessage, d.CreatedAt,
		"https://consumer.example.com/hooks", secretEnc,
	)

	mock.ExpectQuery("SELECT (.+) FROM webhook_deliveries d").
		WithArgs(domain.MaxDeliveryAttempts, 50).
		WillReturnRows(rows)

	jobs, err := repo.SelectPendingBatch(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, d.ID, jobs[0].Delivery.ID)
	assert.Equal(t, "https://consumer.example.com/hooks", jobs[0].URL)
	require.NotNil(t, jobs[0].SecretKeyEnc)
	assert.Equal(t, *secretEnc, *jobs[0].SecretKeyEnc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_SelectPendingBatch_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)

	cols := append(deliveryColumnNames(), "url", "secret_key_enc")
	mock.ExpectQuery("SELECT (.+) FROM webhook_deliveries d").
		WithArgs(domain.MaxDeliveryAttempts, 50).
		WillReturnRows(pgxmock.NewRows(cols))

	jobs, err := repo.SelectPendingBatch(context.Background(), 50)
	assert.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_MarkDelivered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE webhook_deliveries").
		WithArgs(1, 200, `{"ok":true}`, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkDelivered(context.Background(), id, 1, 200, `{"ok":true}`)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_MarkFailedOrRetry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	id := uuid.New()
	status := 503

	mock.ExpectExec("UPDATE webhook_deliveries").
		WithArgs(2, domain.MaxDeliveryAttempts, &status, "endpoint returned 503", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkFailedOrRetry(context.Background(), id, 2, &status, "endpoint returned 503")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_List_ByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	d := newTestDelivery()
	failed := domain.DeliveryStatusFailed

	mock.ExpectQuery("SELECT COUNT(.+) FROM webhook_deliveries").
		WithArgs(failed).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT (.+) FROM webhook_deliveries").
		WithArgs(failed, 20, 0).
		WillReturnRows(pgxmock.NewRows(deliveryColumnNames()).AddRow(
			d.ID, d.WebhookConfigID, d.EventType, d.Payload, d.Status, d.Attempts,
			d.LastAttemptAt, d.ResponseStatus, d.ResponseBody, d.ErrorMessage, d.CreatedAt,
		))

	deliveries, total, err := repo.List(context.Background(), ports.DeliveryListParams{
		Status:   &failed,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, deliveries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	configID := uuid.New()

	mock.ExpectQuery("SELECT(.+)FROM webhook_deliveries").
		WithArgs(configID).
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "delivered", "failed", "exhausted"}).
			AddRow(int64(10), int64(2), int64(6), int64(2), int64(1)))

	stats, err := repo.GetStats(context.Background(), &configID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(6), stats.Delivered)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Exhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
