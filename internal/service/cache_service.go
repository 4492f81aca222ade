package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

// CacheService wraps the cache repository with metrics instrumentation so
// every lookup feeds the hit-ratio collectors.
type CacheService struct {
	cache   cacheStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCacheService constructs the instrumented cache facade.
func NewCacheService(cache cacheStore, metrics *MetricsService, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{cache: cache, metrics: metrics, logger: logger}
}

// Get reads a cached value, recording hit or miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if s.cache == nil {
		return appErrors.ErrCacheMiss
	}
	start := time.Now()
	err := s.cache.Get(ctx, key, dest)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Set stores a value with the given TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, value, ttl)
}

// DeleteByPattern drops all keys matching the pattern.
func (s *CacheService) DeleteByPattern(ctx context.Context, pattern string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, pattern)
}
