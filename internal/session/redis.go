package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"candybowl/internal/apperr"

	"github.com/go-redis/redis/v8"
)

const DefaultRedisPrefix = "candybowl:session:"

// RedisRegistry stores each session as a JSON value whose TTL is refreshed
// on every write, so idle sessions expire on the server.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisRegistry parses a redis:// URL and pings the server.
func NewRedisRegistry(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisRegistry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisRegistryWithClient(client, prefix, ttl), nil
}

func NewRedisRegistryWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRegistry) key(id string) string { return r.prefix + id }

func (r *RedisRegistry) Put(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "session.put", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), raw, r.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindStorage, "session.put", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*Session, bool, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindStorage, "session.get", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, apperr.Wrap(apperr.KindStorage, "session.get", err)
	}
	return &s, true, nil
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
