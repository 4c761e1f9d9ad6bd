// Package cache holds the Redis-backed stores.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brandinglab/backend/internal/domain/importing"
)

const importLockKey = "brandinglab:import:lock"

// RedisLockStore implements importing.LockStore with a single Redis key.
// Acquire relies on SETNX so two racing tabs cannot both start an import;
// the TTL makes a crashed run's lock disappear on its own.
type RedisLockStore struct {
	client *redis.Client
}

var _ importing.LockStore = (*RedisLockStore)(nil)

// NewRedisLockStore creates a lock store on the given Redis client.
func NewRedisLockStore(client *redis.Client) *RedisLockStore {
	return &RedisLockStore{client: client}
}

// Acquire stores the lock only when no lock is held.
func (s *RedisLockStore) Acquire(ctx context.Context, lock *importing.ImportLock, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(lock)
	if err != nil {
		return false, fmt.Errorf("marshal import lock: %w", err)
	}
	ok, err := s.client.SetNX(ctx, importLockKey, payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire import lock: %w", err)
	}
	return ok, nil
}

// Refresh overwrites the lock payload and resets the TTL.
func (s *RedisLockStore) Refresh(ctx context.Context, lock *importing.ImportLock, ttl time.Duration) error {
	payload, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal import lock: %w", err)
	}
	if err := s.client.Set(ctx, importLockKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("refresh import lock: %w", err)
	}
	return nil
}

// Get returns the held lock, or nil when none.
func (s *RedisLockStore) Get(ctx context.Context) (*importing.ImportLock, error) {
	payload, err := s.client.Get(ctx, importLockKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import lock: %w", err)
	}
	var lock importing.ImportLock
	if err := json.Unmarshal(payload, &lock); err != nil {
		return nil, fmt.Errorf("unmarshal import lock: %w", err)
	}
	return &lock, nil
}

// Release deletes the lock unconditionally.
func (s *RedisLockStore) Release(ctx context.Context) error {
	if err := s.client.Del(ctx, importLockKey).Err(); err != nil {
		return fmt.Errorf("release import lock: %w", err)
	}
	return nil
}
