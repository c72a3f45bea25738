package cache

import (
	"context"
	"errors"
	"time"
)

// RedisClient captures the commands the cache needs from a redis client. Get
// returns "" with a nil error for a missing key.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// RedisStore keeps entries in redis. Expiry is left to redis.
type RedisStore struct {
	client    RedisClient
	ttl       time.Duration
	keyPrefix string
}

// NewRedisStore builds a store over client.
func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, keyPrefix: "formversion:"}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, errors.New("redis cache store not configured")
	}
	value, err := s.client.Get(ctx, s.keyPrefix+key)
	if err != nil {
		return nil, false, err
	}
	if value == "" {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if s == nil || s.client == nil {
		return errors.New("redis cache store not configured")
	}
	return s.client.Set(ctx, s.keyPrefix+key, string(value), s.ttl)
}

// DeletePrefix collects the matching keys of every prefix and removes them
// with a single DEL.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefixes ...string) error {
	if s == nil || s.client == nil {
		return errors.New("redis cache store not configured")
	}
	prefixes = trimPrefixes(prefixes)
	if len(prefixes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		full := s.keyPrefix + prefix
		keys = append(keys, full)
		matched, err := s.client.Keys(ctx, full+keySeparator+"*")
		if err != nil {
			return err
		}
		keys = append(keys, matched...)
	}
	return s.client.Del(ctx, keys...)
}
