package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ClaimStore implements ports.DeliveryClaimStore using Redis SET NX.
// A claim is a short lease: it expires on its own, so a crashed dispatcher
// never leaves a row permanently locked.
type ClaimStore struct {
	client *goredis.Client
	prefix string
}

// NewClaimStore creates a new Redis-backed delivery claim store.
func NewClaimStore(client *goredis.Client) *ClaimStore {
	return &ClaimStore{
		client: client,
		prefix: "claim:delivery:",
	}
}

// TryClaim atomically claims a delivery for one send attempt.
// Returns true if this invocation won the claim, false if another
// invocation already holds it.
func (s *ClaimStore) TryClaim(ctx context.Context, deliveryID uuid.UUID, ttl time.Duration) (bool, error) {
	key := s.prefix + deliveryID.String()
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, another invocation owns the row
			return false, nil
		}
		return false, fmt.Errorf("redis delivery claim: %w", err)
	}
	return result == "OK", nil
}
