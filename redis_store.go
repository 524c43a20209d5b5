package lapis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps persisted responses in Redis, which makes the cache
// shareable across processes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisStoreConfig configures NewRedisStore.
type RedisStoreConfig struct {
	Addr     string        `yaml:"addr" env:"LAPIS_REDIS_ADDR"`
	Password string        `yaml:"password" env:"LAPIS_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"LAPIS_REDIS_DB"`
	Prefix   string        `yaml:"prefix" env:"LAPIS_REDIS_PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"LAPIS_REDIS_TTL"`
}

// NewRedisStore connects to the server described by cfg.
func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.Prefix, cfg.TTL)
}

// NewRedisStoreWithClient wraps an existing client. Keys are stored as
// prefix+key; a zero ttl keeps them until evicted.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "lapis:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*Response, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	resp, err := DecodeResponse(data)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, resp *Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
