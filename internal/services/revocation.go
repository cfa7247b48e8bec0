package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "revoked:"

// RedisRevocationStore keeps revoked refresh-token IDs in Redis, with entry
// TTLs matching the remaining lifetime of the revoked token so the denylist
// stays bounded. Redis also makes revocations visible across replicas.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore connects to Redis and verifies the connection
func NewRedisRevocationStore(uri string) (*RedisRevocationStore, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisRevocationStore{client: client}, nil
}

// Revoke marks a token ID as revoked for ttl
func (r *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.client.Set(ctx, revocationKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether a token ID is on the denylist
func (r *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, revocationKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the Redis connection
func (r *RedisRevocationStore) Close() error {
	return r.client.Close()
}

// MemoryRevocationStore is a process-local denylist used when no Redis
// backend is configured. Revocations are not shared across replicas.
type MemoryRevocationStore struct {
	entries map[string]time.Time
	mutex   sync.RWMutex
}

// NewMemoryRevocationStore creates an in-memory denylist
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
	}
}

// Revoke marks a token ID as revoked until now+ttl
func (m *MemoryRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether a token ID is on the denylist, lazily dropping
// entries whose token would have expired anyway
func (m *MemoryRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mutex.RLock()
	expiry, exists := m.entries[jti]
	m.mutex.RUnlock()

	if !exists {
		return false, nil
	}

	if time.Now().After(expiry) {
		m.mutex.Lock()
		delete(m.entries, jti)
		m.mutex.Unlock()
		return false, nil
	}

	return true, nil
}
