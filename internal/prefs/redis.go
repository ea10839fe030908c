package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKey is the hash holding every pref when none is configured.
const DefaultRedisKey = "upward:prefs"

// RedisClient is the subset of *redis.Client the store needs.
type RedisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HExists(ctx context.Context, key, field string) *redis.BoolCmd
	Close() error
}

// RedisStore keeps every pref as a field of one Redis hash. Writes go
// straight to the server; durability beyond that is the server's AOF policy.
type RedisStore struct {
	client  RedisClient
	hash    string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// OpenRedis connects to url and verifies the connection.
func OpenRedis(url, hash string, logger *zap.Logger) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis prefs backend needs REDIS_URL")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStore(client, hash, logger), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client RedisClient, hash string, logger *zap.Logger) *RedisStore {
	if hash == "" {
		hash = DefaultRedisKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:  client,
		hash:    hash,
		timeout: 2 * time.Second,
		logger:  logger.Sugar(),
	}
}

func (s *RedisStore) lookup(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	v, err := s.client.HGet(ctx, s.hash, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("Failed to read pref", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (s *RedisStore) store(key string, value interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.HSet(ctx, s.hash, key, value).Err(); err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetInt(key string, def int) int {
	if v, ok := s.lookup(key); ok {
		return parseInt(v, def)
	}
	return def
}

func (s *RedisStore) SetInt(key string, value int) error { return s.store(key, value) }

func (s *RedisStore) GetFloat(key string, def float64) float64 {
	if v, ok := s.lookup(key); ok {
		return parseFloat(v, def)
	}
	return def
}

func (s *RedisStore) SetFloat(key string, value float64) error {
	return s.store(key, formatFloat(value))
}

func (s *RedisStore) GetString(key string, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

func (s *RedisStore) SetString(key string, value string) error { return s.store(key, value) }

func (s *RedisStore) HasKey(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ok, err := s.client.HExists(ctx, s.hash, key).Result()
	return err == nil && ok
}

func (s *RedisStore) Save() error { return nil }

func (s *RedisStore) Close() error { return s.client.Close() }
