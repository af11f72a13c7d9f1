package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/models"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := NewMemoryStore()
		token := NewToken()
		rec := Recovery{UserID: uuid.New(), SecurityQuestion: "What street did you grow up on?"}

		require.NoError(t, store.Put(ctx, token, rec, time.Minute))

		got, err := store.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("missing token", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Get(ctx, "no-such-token")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("expired session is gone", func(t *testing.T) {
		store := NewMemoryStore()
		now := time.Now()
		store.now = func() time.Time { return now }

		token := NewToken()
		require.NoError(t, store.Put(ctx, token, Recovery{UserID: uuid.New()}, 10*time.Minute))

		now = now.Add(11 * time.Minute)
		_, err := store.Get(ctx, token)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := NewMemoryStore()
		token := NewToken()
		require.NoError(t, store.Put(ctx, token, Recovery{UserID: uuid.New()}, time.Minute))
		require.NoError(t, store.Delete(ctx, token))
		require.NoError(t, store.Delete(ctx, token))

		_, err := store.Get(ctx, token)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestMemoryRevocationList(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked until expiry", func(t *testing.T) {
		list := NewMemoryRevocationList()
		now := time.Now()
		list.now = func() time.Time { return now }

		require.NoError(t, list.Revoke(ctx, "jti-1", 15*time.Minute))

		revoked, err := list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		now = now.Add(16 * time.Minute)
		revoked, err = list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown jti is not revoked", func(t *testing.T) {
		list := NewMemoryRevocationList()
		revoked, err := list.IsRevoked(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non positive ttl is a no-op", func(t *testing.T) {
		list := NewMemoryRevocationList()
		require.NoError(t, list.Revoke(ctx, "jti-2", 0))
		revoked, err := list.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
