package dto

import "time"

// ExpiryBuckets groups assets by time remaining on their renewal date.
// Non-expiring operational periods are excluded entirely.
type ExpiryBuckets struct {
	Expired      int `json:"expired"`
	Today        int `json:"today"`
	Within30Days int `json:"within30Days"`
	Within90Days int `json:"within90Days"`
	Later        int `json:"later"`
}

// DashboardSummary is the cached aggregate view served to the landing page.
type DashboardSummary struct {
	TotalAssets int            `json:"totalAssets"`
	ByStatus    map[string]int `json:"byStatus"`
	ByCategory  map[string]int `json:"byCategory"`
	Expiry      ExpiryBuckets  `json:"expiry"`
	OpenReports int            `json:"openReports"`
	GeneratedAt time.Time      `json:"generatedAt"`
}
