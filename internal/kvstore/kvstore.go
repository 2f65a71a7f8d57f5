// Package kvstore is the per-user key-value store backing caches and
// in-flight session state. Values are stored as JSON documents in Redis.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reads and writes JSON documents by key.
type Store interface {
	// Get decodes the value at key into dst. It reports false when the key is missing.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set encodes v at key. A zero ttl keeps the key until removed.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error
}

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Queue appends JSON jobs to a Redis list consumed by a worker.
type Queue struct {
	rdb  *redis.Client
	name string
}

// NewQueue creates a Queue writing to the named list.
func NewQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Push encodes v and appends it to the queue.
func (q *Queue) Push(ctx context.Context, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.rdb.RPush(ctx, q.name, raw).Err()
}
