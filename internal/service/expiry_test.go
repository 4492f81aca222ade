package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

func TestClassifyExpiryNonExpiringPeriods(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	past := now.AddDate(-1, 0, 0)

	for _, period := range []models.OperationalPeriod{models.PeriodPerpetual, models.PeriodOEM, models.PeriodOpenSource} {
		badge := ClassifyExpiry(period, &past, now)
		assert.Equal(t, ExpiryNone, badge.Class, "period %s must never expire", period)
		assert.Nil(t, badge.DaysLeft)
	}
}

func TestClassifyExpiryBuckets(t *testing.T) {
	now := time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)

	cases := []struct {
		name    string
		renewal time.Time
		class   string
	}{
		{"past date", now.AddDate(0, 0, -1), ExpiryExpired},
		{"same day", now, ExpiryToday},
		{"tomorrow", now.AddDate(0, 0, 1), ExpirySoon},
		{"thirty days", now.AddDate(0, 0, 30), ExpirySoon},
		{"ninety days", now.AddDate(0, 0, 90), ExpiryUpcoming},
		{"half a year", now.AddDate(0, 6, 0), ExpiryOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			badge := ClassifyExpiry(models.PeriodSubscription, &tc.renewal, now)
			assert.Equal(t, tc.class, badge.Class)
			require.NotNil(t, badge.DaysLeft)
		})
	}
}

func TestClassifyExpiryMissingDate(t *testing.T) {
	badge := ClassifyExpiry(models.PeriodTrial, nil, time.Now())
	assert.Equal(t, ExpiryNoDate, badge.Class)
}
