package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("CFG_001", "Webhook configuration not found", http.StatusNotFound),
			expected: "[CFG_001] Webhook configuration not found",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("WHK_002", "Queue read failed", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[WHK_002] Queue read failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("CFG_004", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestErrorCatalog(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"ConfigNotFound", ErrConfigNotFound(), "CFG_001", 404},
		{"ConfigInactive", ErrConfigInactive(), "CFG_002", 409},
		{"UnknownEventType", ErrUnknownEventType("x.y"), "CFG_003", 400},
		{"DeliveryNotFound", ErrDeliveryNotFound(), "WHK_001", 404},
		{"QueueRead", ErrQueueRead(errors.New("boom")), "WHK_002", 500},
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"UsernameExists", ErrUsernameExists(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"AdminSuspended", ErrAdminSuspended(), "AUTH_004", 403},
		{"InvalidTriggerToken", ErrInvalidTriggerToken(), "AUTH_005", 401},
		{"RateLimitExceeded", ErrRateLimitExceeded(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestUnknownEventType_IncludesType(t *testing.T) {
	err := ErrUnknownEventType("user.renamed")
	assert.Contains(t, err.Message, "user.renamed")
}
