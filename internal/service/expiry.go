package service

import (
	"fmt"
	"time"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
)

// Expiry badge classes, ordered by urgency.
const (
	ExpiryNone     = "none"
	ExpiryNoDate   = "no-date"
	ExpiryExpired  = "expired"
	ExpiryToday    = "today"
	ExpirySoon     = "soon"
	ExpiryUpcoming = "upcoming"
	ExpiryOK       = "ok"
)

// ClassifyExpiry derives the validity badge for a record. Perpetual, OEM and
// Open Source periods never expire regardless of any renewal date on file.
// Day arithmetic is calendar-based: a renewal date equal to today's date
// classifies as "today", not "expired".
func ClassifyExpiry(period models.OperationalPeriod, renewal *time.Time, now time.Time) dto.ExpiryBadge {
	if period.NonExpiring() {
		return dto.ExpiryBadge{Class: ExpiryNone, Label: "Non-expiring"}
	}
	if renewal == nil {
		return dto.ExpiryBadge{Class: ExpiryNoDate, Label: "No renewal date"}
	}

	days := daysUntil(now, *renewal)
	badge := dto.ExpiryBadge{DaysLeft: &days}
	switch {
	case days < 0:
		badge.Class = ExpiryExpired
		badge.Label = "Expired"
	case days == 0:
		badge.Class = ExpiryToday
		badge.Label = "Expires today"
	case days <= 30:
		badge.Class = ExpirySoon
		badge.Label = fmt.Sprintf("Expires in %d days", days)
	case days <= 90:
		badge.Class = ExpiryUpcoming
		badge.Label = fmt.Sprintf("Expires in %d weeks", (days+6)/7)
	default:
		badge.Class = ExpiryOK
		badge.Label = fmt.Sprintf("Expires in %d months", days/30)
	}
	return badge
}

func daysUntil(now, target time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}
