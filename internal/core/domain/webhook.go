package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Delivery hard limits. MaxDeliveryAttempts is a ceiling, not a tunable:
// the selection query and the status transition both enforce it.
const (
	MaxDeliveryAttempts  = 3
	ResponseBodyMaxChars = 1000
	ErrorMessageMaxChars = 500
)

// DeliveryStatus represents the delivery state of a webhook.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// WebhookConfig is an administrator-registered destination endpoint.
// The dispatcher only ever reads it; the management API owns its lifecycle.
type WebhookConfig struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Events       []string  `json:"events"`
	SecretKeyEnc *string   `json:"-"` // AES-256-GCM at rest, never exposed
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsSubscribed reports whether the config subscribes to the given event type.
func (c *WebhookConfig) IsSubscribed(eventType string) bool {
	for _, e := range c.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// WebhookDelivery is one delivery record for one (config, event) pair.
// The payload is opaque to the dispatcher and forwarded verbatim.
type WebhookDelivery struct {
	ID              uuid.UUID       `json:"id"`
	WebhookConfigID uuid.UUID       `json:"webhook_config_id"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	Status          DeliveryStatus  `json:"status"`
	Attempts        int             `json:"attempts"`
	LastAttemptAt   *time.Time      `json:"last_attempt_at"`
	ResponseStatus  *int            `json:"response_status"`
	ResponseBody    *string         `json:"response_body"`
	ErrorMessage    *string         `json:"error_message"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CanRetry reports whether the delivery is still eligible for an attempt.
func (d *WebhookDelivery) CanRetry() bool {
	return d.Status == DeliveryStatusPending && d.Attempts < MaxDeliveryAttempts
}

// DeliveryJob is a pending delivery joined with the destination fields the
// dispatcher needs for one send. Built by the selection query.
type DeliveryJob struct {
	Delivery     WebhookDelivery
	URL          string
	SecretKeyEnc *string
}

// Truncate caps s at max characters. Counts runes, not bytes: response
// bodies from untrusted endpoints may be arbitrary UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
