package ports

import (
	"context"
	"encoding/json"
	"time"

	"thirdplace-webhooks/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption of webhook signing
// secrets at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService computes the X-Webhook-Signature value: HMAC-SHA256 over
// the exact payload bytes, hex-encoded, prefixed with "sha256=".
type SignatureService interface {
	Sign(secretKey string, payload []byte) string
	Verify(secretKey string, payload []byte, signature string) bool
}

// HashService handles admin password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for admin sessions.
type TokenService interface {
	Generate(adminID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AdminID  uuid.UUID
	Username string
}

// DeliveryClaimStore lets a dispatcher invocation claim a delivery row for
// the duration of one send, so overlapping invocations skip rows another
// run is already attempting. Best effort: a claim store error must degrade
// to the unclaimed behavior, never block delivery.
type DeliveryClaimStore interface {
	// TryClaim returns true if this invocation won the claim.
	TryClaim(ctx context.Context, deliveryID uuid.UUID, ttl time.Duration) (bool, error)
}

// --- Service Ports (Business Logic) ---

// DispatchSummary is the result of one dispatch cycle.
type DispatchSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// DispatchService drains a bounded slice of the pending-delivery queue.
type DispatchService interface {
	// RunCycle selects up to the configured batch of eligible deliveries,
	// attempts each once, and records the outcome per row. Only a queue
	// read failure aborts the cycle.
	RunCycle(ctx context.Context) (*DispatchSummary, error)
}

// PublisherService fans an application event out to subscribed endpoints.
type PublisherService interface {
	// Publish inserts one pending delivery per active config subscribed to
	// eventType and returns the fan-out count.
	Publish(ctx context.Context, eventType string, payload json.RawMessage) (int, error)
}

// WebhookConfigService defines webhook configuration management.
type WebhookConfigService interface {
	Create(ctx context.Context, req CreateConfigRequest) (*domain.WebhookConfig, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	List(ctx context.Context) ([]domain.WebhookConfig, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateConfigRequest) (*domain.WebhookConfig, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// SendTest enqueues a webhook.test delivery for the config so an
	// operator can verify an endpoint without waiting for a real event.
	SendTest(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error)
}

// CreateConfigRequest holds validated input for config creation.
type CreateConfigRequest struct {
	Name      string
	URL       string
	Events    []string
	SecretKey *string // plaintext, encrypted before storage
	IsActive  *bool   // nil = active
}

// UpdateConfigRequest holds partial input for config updates; nil fields
// are left unchanged.
type UpdateConfigRequest struct {
	Name      *string
	URL       *string
	Events    []string
	SecretKey *string
	IsActive  *bool
}

// ReportingService exposes delivery history and stats to administrators.
type ReportingService interface {
	ListDeliveries(ctx context.Context, params DeliveryListParams) ([]domain.WebhookDelivery, int64, error)
	GetStats(ctx context.Context, configID *uuid.UUID) (*DeliveryStats, error)
}

// AuthService defines admin authentication.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.AdminUser, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}
