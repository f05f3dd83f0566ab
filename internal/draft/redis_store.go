package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an untouched draft lingers. Every write
// refreshes the deadline, so only abandoned drafts expire.
const DefaultTTL = 7 * 24 * time.Hour

// RedisStore implements Store on Redis. Draft keys live in their own
// "draft:" namespace so they never collide with other cached client
// state.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "draft:",
		ttl:    DefaultTTL,
	}
}

func (s *RedisStore) key(draftKey string) string {
	return s.prefix + draftKey
}

// Write overwrites the draft under key. Marshal and storage failures
// are dropped on purpose: the editor keeps working without the cache.
func (s *RedisStore) Write(key string, payload Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

// Read returns the draft under key. Missing keys and undecodable
// payloads both read as absent.
func (s *RedisStore) Read(key string) (Payload, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		return Payload{}, false
	}

	var payload Payload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return Payload{}, false
	}
	return payload, true
}

// Clear removes the draft under key.
func (s *RedisStore) Clear(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.client.Del(ctx, s.key(key)).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
