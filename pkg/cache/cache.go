package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the key/value surface used by the resolver cache and the run lock.
// Values are plain strings; callers encode what they store.
type Service interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	MSet(ctx context.Context, values map[string]string, expiration time.Duration) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by New.
const (
	DriverMemory  = "memory"
	DriverRedis   = "redis"
	DriverLayered = "layered"
)

// New builds a cache for the given driver. Redis-backed drivers ping on construction.
func New(driver string, redisOpts []RedisOption, memOpts ...MemoryOption) (Service, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryCache(memOpts...), nil
	case DriverRedis:
		return NewRedisCache(redisOpts...)
	case DriverLayered:
		rc, err := NewRedisCache(redisOpts...)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(rc, memOpts...), nil
	default:
		return nil, errors.New("cache: unknown driver " + driver)
	}
}
