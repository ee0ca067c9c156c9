package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore remembers revoked token ids until their natural expiry.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryTokenStore keeps the blacklist in process; used when Redis is not configured.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryTokenStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.revoked[jti]
	if !exists {
		return false, nil
	}
	if time.Now().Before(expiry) {
		return true, nil
	}
	// Hapus token kadaluarsa dari blacklist
	delete(s.revoked, jti)
	return false, nil
}

const revokedKeyPrefix = "nagoyameshi:revoked:"

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	err := s.client.Get(ctx, revokedKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
