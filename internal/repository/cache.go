package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"video_hearings/pkg/logger"
)

// KeyValueStore saves and loads JSON-serializable values under string keys.
// LoadValue reports false (not an error) when the key is absent.
type KeyValueStore interface {
	SaveValue(ctx context.Context, key string, value interface{}) error
	LoadValue(ctx context.Context, key string, dest interface{}) (bool, error)
	DeleteValue(ctx context.Context, key string) error
}

type redisKeyValueStore struct {
	rdb *redis.Client
	log logger.Logger
}

func NewRedisKeyValueStore(rdb *redis.Client, log logger.Logger) KeyValueStore {
	return &redisKeyValueStore{rdb: rdb, log: log}
}

func (s *redisKeyValueStore) SaveValue(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Error("Failed to marshal cached value", "key", key, "error", err)
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}

	if err := s.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		s.log.Error("Failed to save cached value", "key", key, "error", err)
		return fmt.Errorf("failed to save cached value: %w", err)
	}
	return nil
}

func (s *redisKeyValueStore) LoadValue(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		s.log.Error("Failed to load cached value", "key", key, "error", err)
		return false, fmt.Errorf("failed to load cached value: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

func (s *redisKeyValueStore) DeleteValue(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cached value: %w", err)
	}
	return nil
}
