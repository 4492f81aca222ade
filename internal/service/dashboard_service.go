package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

const dashboardSummaryKey = "dashboard:summary"

type dashboardAssetStore interface {
	ListAll(ctx context.Context) ([]models.AssetRecord, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService aggregates registry-wide counts for the landing view,
// caching the result in Redis. Mutating services invalidate the dashboard
// keys, so a cached summary is at most one TTL stale.
type DashboardService struct {
	assets  dashboardAssetStore
	reports reportLedger
	cache   cacheStore
	logger  *zap.Logger
	ttl     time.Duration
}

// NewDashboardService constructs the service.
func NewDashboardService(assets dashboardAssetStore, reports reportLedger, cache cacheStore, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		assets:  assets,
		reports: reports,
		cache:   cache,
		logger:  logger,
		ttl:     ttl,
	}
}

// Summary returns the aggregate view, serving from cache when possible.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	if s.cache != nil {
		var cached dto.DashboardSummary
		err := s.cache.Get(ctx, dashboardSummaryKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardSummaryKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops all cached dashboard payloads.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*dto.DashboardSummary, error) {
	statusCounts, err := s.assets.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to aggregate statuses")
	}
	categoryCounts, err := s.assets.CountByCategory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to aggregate categories")
	}
	records, err := s.assets.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list assets")
	}

	summary := &dto.DashboardSummary{
		ByStatus:    make(map[string]int, len(statusCounts)),
		ByCategory:  make(map[string]int, len(categoryCounts)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, c := range statusCounts {
		summary.ByStatus[string(c.Status)] = c.Count
		summary.TotalAssets += c.Count
	}
	for _, c := range categoryCounts {
		summary.ByCategory[c.Category] = c.Count
	}

	now := time.Now().UTC()
	for _, record := range records {
		badge := ClassifyExpiry(record.OperationalPeriod, record.RenewalDate, now)
		switch badge.Class {
		case ExpiryExpired:
			summary.Expiry.Expired++
		case ExpiryToday:
			summary.Expiry.Today++
		case ExpirySoon:
			summary.Expiry.Within30Days++
		case ExpiryUpcoming:
			summary.Expiry.Within90Days++
		case ExpiryOK:
			summary.Expiry.Later++
		}
	}

	if s.reports != nil {
		counts, err := s.reports.CountByAsset(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report counts")
		}
		for _, count := range counts {
			summary.OpenReports += count
		}
	}
	return summary, nil
}
