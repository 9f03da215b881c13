package settings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "settings:"

// CachedRepository serves reads from Redis and falls through to the wrapped
// repository on a miss. Writes go to the wrapped repository and then replace
// the cached entry. A read only fills an empty entry, so a value loaded before
// a write can never overwrite the written one.
type CachedRepository struct {
	inner  Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRepository(inner Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedRepository) Get(ctx context.Context, name string) ([]byte, error) {
	cached, err := r.cache.Get(ctx, cachePrefix+name).Bytes()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		r.logger.Warn("settings cache read failed", "name", name, "error", err)
	}

	value, err := r.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, name, value)
	return value, nil
}

func (r *CachedRepository) fill(ctx context.Context, name string, value []byte) {
	if err := r.cache.SetNX(ctx, cachePrefix+name, value, r.ttl).Err(); err != nil {
		r.logger.Warn("settings cache fill failed", "name", name, "error", err)
	}
}

func (r *CachedRepository) Put(ctx context.Context, name string, value []byte, updatedBy string) error {
	if err := r.inner.Put(ctx, name, value, updatedBy); err != nil {
		return err
	}
	if err := r.cache.Set(ctx, cachePrefix+name, value, r.ttl).Err(); err != nil {
		r.logger.Warn("settings cache write failed", "name", name, "error", err)
		if err := r.cache.Del(ctx, cachePrefix+name).Err(); err != nil {
			r.logger.Warn("settings cache evict failed", "name", name, "error", err)
		}
	}
	return nil
}
