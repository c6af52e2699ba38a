package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimStore_TryClaim_FirstWins(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewClaimStore(client)
	ctx := context.Background()
	id := uuid.New()

	won, err := store.TryClaim(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.True(t, won, "first claim should win")

	won, err = store.TryClaim(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.False(t, won, "second claim on the same delivery should lose")
}

func TestClaimStore_TryClaim_DifferentDeliveries(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewClaimStore(client)
	ctx := context.Background()

	won1, err := store.TryClaim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, won1)

	won2, err := store.TryClaim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, won2, "claims on distinct deliveries are independent")
}

func TestClaimStore_TryClaim_LeaseExpires(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewClaimStore(client)
	ctx := context.Background()
	id := uuid.New()

	won, err := store.TryClaim(ctx, id, time.Second)
	require.NoError(t, err)
	assert.True(t, won)

	// Fast-forward past the lease TTL
	s.FastForward(2 * time.Second)

	won, err = store.TryClaim(ctx, id, time.Second)
	require.NoError(t, err)
	assert.True(t, won, "expired lease should be claimable again")
}
