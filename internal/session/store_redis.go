package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"casefile/internal/models"
)

const (
	recoveryKeyPrefix   = "recovery:"
	revocationKeyPrefix = "revoked:"
)

// RedisStore keeps recovery sessions in redis so expiry is enforced by the
// server rather than trusted client state.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, token string, rec Recovery, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal recovery session: %w", err)
	}
	if err := s.client.Set(ctx, recoveryKeyPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("store recovery session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (Recovery, error) {
	data, err := s.client.Get(ctx, recoveryKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Recovery{}, models.ErrNotFound
	}
	if err != nil {
		return Recovery{}, fmt.Errorf("load recovery session: %w", err)
	}

	var rec Recovery
	if err := json.Unmarshal(data, &rec); err != nil {
		return Recovery{}, fmt.Errorf("unmarshal recovery session: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, recoveryKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete recovery session: %w", err)
	}
	return nil
}

// RedisRevocationList marks token IDs revoked until their natural expiry.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // token already expired, nothing to revoke
	}
	if err := r.client.Set(ctx, revocationKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, revocationKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}
