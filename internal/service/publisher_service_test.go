package service

import (
	"context"
	"errors"
	"testing"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports/mocks"
	"thirdplace-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPublisherService_Publish_FansOutToSubscribers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConfigRepo := mocks.NewMockWebhookConfigRepository(ctrl)
	mockDeliveryRepo := mocks.NewMockWebhookDeliveryRepository(ctrl)

	configs := []domain.WebhookConfig{
		{ID: uuid.New(), URL: "https://a.example.com/hooks", IsActive: true},
		{ID: uuid.New(), URL: "https://b.example.com/hooks", IsActive: true},
	}
	payload := []byte(`{"user_id":"u-1","community_id":"c-1"}`)

	mockConfigRepo.EXPECT().
		ListActiveByEvent(gomock.Any(), domain.EventUserJoinedCommunity).
		Return(configs, nil)
	mockDeliveryRepo.EXPECT().
		CreateBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ds []*domain.WebhookDelivery) error {
			require.Len(t, ds, 2)
			for i, d := range ds {
				assert.Equal(t, configs[i].ID, d.WebhookConfigID)
				assert.Equal(t, domain.EventUserJoinedCommunity, d.EventType)
				assert.Equal(t, domain.DeliveryStatusPending, d.Status)
				assert.Zero(t, d.Attempts)
				assert.Equal(t, payload, []byte(d.Payload))
			}
			return nil
		})

	svc := NewPublisherService(mockConfigRepo, mockDeliveryRepo, newTestLogger())

	n, err := svc.Publish(context.Background(), domain.EventUserJoinedCommunity, payload)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPublisherService_Publish_NoSubscribersIsNotAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConfigRepo := mocks.NewMockWebhookConfigRepository(ctrl)
	mockDeliveryRepo := mocks.NewMockWebhookDeliveryRepository(ctrl)

	mockConfigRepo.EXPECT().
		ListActiveByEvent(gomock.Any(), domain.EventDiscussionCreated).
		Return([]domain.WebhookConfig{}, nil)

	svc := NewPublisherService(mockConfigRepo, mockDeliveryRepo, newTestLogger())

	n, err := svc.Publish(context.Background(), domain.EventDiscussionCreated, []byte(`{}`))

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublisherService_Publish_RejectsUnknownEventType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConfigRepo := mocks.NewMockWebhookConfigRepository(ctrl)
	mockDeliveryRepo := mocks.NewMockWebhookDeliveryRepository(ctrl)

	svc := NewPublisherService(mockConfigRepo, mockDeliveryRepo, newTestLogger())

	_, err := svc.Publish(context.Background(), "user.renamed", []byte(`{}`))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CFG_003", appErr.Code)
}

func TestPublisherService_Publish_RejectsInvalidPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConfigRepo := mocks.NewMockWebhookConfigRepository(ctrl)
	mockDeliveryRepo := mocks.NewMockWebhookDeliveryRepository(ctrl)

	svc := NewPublisherService(mockConfigRepo, mockDeliveryRepo, newTestLogger())

	for _, payload := range [][]byte{nil, []byte("not json")} {
		_, err := svc.Publish(context.Background(), domain.EventPaymentCaptured, payload)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CFG_004", appErr.Code)
	}
}

func TestPublisherService_Publish_EnqueueFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockConfigRepo := mocks.NewMockWebhookConfigRepository(ctrl)
	mockDeliveryRepo := mocks.NewMockWebhookDeliveryRepository(ctrl)

	mockConfigRepo.EXPECT().
		ListActiveByEvent(gomock.Any(), domain.EventReferralCompleted).
		Return([]domain.WebhookConfig{{ID: uuid.New(), IsActive: true}}, nil)
	mockDeliveryRepo.EXPECT().
		CreateBatch(gomock.Any(), gomock.Any()).
		Return(errors.New("deadlock detected"))

	svc := NewPublisherService(mockConfigRepo, mockDeliveryRepo, newTestLogger())

	n, err := svc.Publish(context.Background(), domain.EventReferralCompleted, []byte(`{"referrer":"u-2"}`))

	require.Error(t, err)
	assert.Zero(t, n)
}
