package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type stubDashboardAssets struct {
	records    []models.AssetRecord
	statuses   []models.StatusCount
	categories []models.CategoryCount
}

func (s *stubDashboardAssets) ListAll(_ context.Context) ([]models.AssetRecord, error) {
	return s.records, nil
}

func (s *stubDashboardAssets) CountByStatus(_ context.Context) ([]models.StatusCount, error) {
	return s.statuses, nil
}

func (s *stubDashboardAssets) CountByCategory(_ context.Context) ([]models.CategoryCount, error) {
	return s.categories, nil
}

type memoryCache struct {
	values map[string][]byte
	gets   int
	sets   int
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.values == nil {
		c.values = map[string][]byte{}
	}
	c.values[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, _ string) error {
	c.values = map[string][]byte{}
	return nil
}

func dashboardFixture() *stubDashboardAssets {
	now := time.Now().UTC()
	expired := now.AddDate(0, 0, -3)
	soon := now.AddDate(0, 0, 10)
	later := now.AddDate(1, 0, 0)

	recSub := func(id string, renewal *time.Time) models.AssetRecord {
		return models.AssetRecord{
			RecordID:          id,
			OperationalPeriod: models.PeriodSubscription,
			RenewalDate:       renewal,
		}
	}
	perpetual := models.AssetRecord{RecordID: "rec-p", OperationalPeriod: models.PeriodPerpetual, RenewalDate: &expired}

	return &stubDashboardAssets{
		records: []models.AssetRecord{
			recSub("rec-1", &expired),
			recSub("rec-2", &soon),
			recSub("rec-3", &later),
			perpetual,
		},
		statuses: []models.StatusCount{
			{Status: models.StatusFunctional, Count: 3},
			{Status: models.StatusDefective, Count: 1},
		},
		categories: []models.CategoryCount{{Category: models.CategoryAsset, Count: 4}},
	}
}

func TestDashboardSummaryAggregates(t *testing.T) {
	assets := dashboardFixture()
	reports := &stubReportLedger{counts: map[string]int{"rec-1": 2, "rec-2": 1}}
	svc := NewDashboardService(assets, reports, nil, nil, 0)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalAssets)
	assert.Equal(t, 3, summary.ByStatus[string(models.StatusFunctional)])
	assert.Equal(t, 4, summary.ByCategory[models.CategoryAsset])
	assert.Equal(t, 3, summary.OpenReports)
	assert.Equal(t, dto.ExpiryBuckets{Expired: 1, Within30Days: 1, Later: 1}, summary.Expiry)
}

func TestDashboardSummaryServedFromCache(t *testing.T) {
	assets := dashboardFixture()
	cache := &memoryCache{}
	svc := NewDashboardService(assets, nil, cache, nil, time.Minute)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Mutate the backing store; the cached summary must still be served.
	assets.statuses = append(assets.statuses, models.StatusCount{Status: models.StatusUnserviceable, Count: 5})
	second, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TotalAssets, second.TotalAssets)
	assert.Equal(t, 1, cache.sets, "no rebuild while the cache entry is live")

	svc.Invalidate(context.Background())
	third, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TotalAssets+5, third.TotalAssets)
}
