package dto

import (
	"encoding/json"
	"time"

	"thirdplace-webhooks/internal/core/domain"
)

// RegisterRequest is the request body for admin registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AdminID  string `json:"admin_id"`
	Username string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateWebhookConfigRequest is the request body for registering an endpoint.
type CreateWebhookConfigRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=100"`
	URL       string   `json:"url" binding:"required,safe_url"`
	Events    []string `json:"events" binding:"required,min=1"`
	SecretKey *string  `json:"secret_key,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// UpdateWebhookConfigRequest is the request body for partial config updates.
// Absent fields are left unchanged; an empty secret_key clears the secret.
type UpdateWebhookConfigRequest struct {
	Name      *string  `json:"name,omitempty"`
	URL       *string  `json:"url,omitempty" binding:"omitempty,safe_url"`
	Events    []string `json:"events,omitempty"`
	SecretKey *string  `json:"secret_key,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// WebhookConfigResponse is the response body for a webhook config.
// The signing secret is never echoed back; has_secret says whether one is set.
type WebhookConfigResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	HasSecret bool     `json:"has_secret"`
	IsActive  bool     `json:"is_active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// ToWebhookConfigResponse maps a domain config to its API shape.
func ToWebhookConfigResponse(cfg *domain.WebhookConfig) WebhookConfigResponse {
	return WebhookConfigResponse{
		ID:        cfg.ID.String(),
		Name:      cfg.Name,
		URL:       cfg.URL,
		Events:    cfg.Events,
		HasSecret: cfg.SecretKeyEnc != nil && *cfg.SecretKeyEnc != "",
		IsActive:  cfg.IsActive,
		CreatedAt: cfg.CreatedAt.Format(time.RFC3339),
		UpdatedAt: cfg.UpdatedAt.Format(time.RFC3339),
	}
}

// PublishEventRequest is the request body for POST /internal/events.
type PublishEventRequest struct {
	EventType string          `json:"event_type" binding:"required"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

// PublishEventResponse reports the fan-out of a published event.
type PublishEventResponse struct {
	EventType string `json:"event_type"`
	FanOut    int    `json:"fan_out"`
}

// DispatchCycleResponse reports one dispatch cycle's outcome.
type DispatchCycleResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// DeliveryResponse is the response body for a delivery record.
type DeliveryResponse struct {
	ID              string          `json:"id"`
	WebhookConfigID string          `json:"webhook_config_id"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	Status          string          `json:"status"`
	Attempts        int             `json:"attempts"`
	LastAttemptAt   *string         `json:"last_attempt_at,omitempty"`
	ResponseStatus  *int            `json:"response_status,omitempty"`
	ResponseBody    *string         `json:"response_body,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

// ToDeliveryResponse maps a domain delivery to its API shape.
func ToDeliveryResponse(d *domain.WebhookDelivery) DeliveryResponse {
	resp := DeliveryResponse{
		ID:              d.ID.String(),
		WebhookConfigID: d.WebhookConfigID.String(),
		EventType:       d.EventType,
		Payload:         d.Payload,
		Status:          string(d.Status),
		Attempts:        d.Attempts,
		ResponseStatus:  d.ResponseStatus,
		ResponseBody:    d.ResponseBody,
		ErrorMessage:    d.ErrorMessage,
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
	}
	if d.LastAttemptAt != nil {
		s := d.LastAttemptAt.Format(time.RFC3339)
		resp.LastAttemptAt = &s
	}
	return resp
}

// DeliveryListResponse wraps a paginated delivery list.
type DeliveryListResponse struct {
	Items      []DeliveryResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// DeliveryStatsResponse is the response for delivery statistics.
type DeliveryStatsResponse struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Exhausted int64 `json:"exhausted"`
}
