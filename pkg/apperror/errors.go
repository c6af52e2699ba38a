package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Configuration (CFG) ----

func ErrConfigNotFound() *AppError {
	return New("CFG_001", "Webhook configuration not found", http.StatusNotFound)
}

func ErrConfigInactive() *AppError {
	return New("CFG_002", "Webhook configuration is inactive", http.StatusConflict)
}

func ErrUnknownEventType(eventType string) *AppError {
	return New("CFG_003", fmt.Sprintf("Unknown event type: %s", eventType), http.StatusBadRequest)
}

// ---- Webhook Delivery (WHK) ----

func ErrDeliveryNotFound() *AppError {
	return New("WHK_001", "Webhook delivery not found", http.StatusNotFound)
}

func ErrQueueRead(err error) *AppError {
	return Wrap("WHK_002", "Failed to read the pending-delivery queue", http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminSuspended() *AppError {
	return New("AUTH_004", "Administrator account is suspended", http.StatusForbidden)
}

func ErrInvalidTriggerToken() *AppError {
	return New("AUTH_005", "Invalid dispatch trigger token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

// Validation returns a CFG_004-style validation error.
func Validation(message string) *AppError {
	return New("CFG_004", message, http.StatusBadRequest)
}
