// Package redis provides a Redis-backed session store. Each session is a
// JSON document stored under session:<id> with a TTL, so expiry is enforced
// by Redis itself and needs no sweeping.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/bluefeet/starch-exchange/internal/session"
)

// KeyPrefix is the Redis key prefix for all session documents.
const KeyPrefix = "session:"

// Store manages session data mappings in Redis.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis at addr and verifies the connection.
func NewStore(addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing Redis client. Useful for tests and
// for sharing one client across components.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, id string) (map[string]any, error) {
	val, err := s.client.Get(ctx, KeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", id, err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("redis: unmarshal %s: %w", id, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, id string, data map[string]any, ttl time.Duration) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", id, err)
	}
	if err := s.client.Set(ctx, KeyPrefix+id, doc, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, KeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis: del %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
