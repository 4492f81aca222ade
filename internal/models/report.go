package models

import "time"

// IssueCondition is the reporter's assessment of the asset's state.
type IssueCondition string

const (
	ConditionDamaged          IssueCondition = "Damaged"
	ConditionUnderMaintenance IssueCondition = "Under Maintenance"
	ConditionDefective        IssueCondition = "Defective"
	ConditionUnserviceable    IssueCondition = "Unserviceable"
)

// Valid reports whether the condition is one of the accepted values.
func (c IssueCondition) Valid() bool {
	switch c {
	case ConditionDamaged, ConditionUnderMaintenance, ConditionDefective, ConditionUnserviceable:
		return true
	}
	return false
}

// ReportedIssue is a ledger entry filed against a live asset. The asset name
// and code are denormalized so the entry remains meaningful after the asset
// itself is archived.
type ReportedIssue struct {
	ID            string         `db:"id" json:"id"`
	AssetRecordID string         `db:"asset_record_id" json:"assetRecordId"`
	AssetID       string         `db:"asset_id" json:"assetCode"`
	AssetName     string         `db:"asset_name" json:"assetName"`
	Condition     IssueCondition `db:"condition" json:"condition"`
	Description   string         `db:"description" json:"description"`
	ImagePath     *string        `db:"image_path" json:"imagePath,omitempty"`
	ReportedBy    string         `db:"reported_by" json:"reportedBy"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// ReportFilter captures report listing criteria.
type ReportFilter struct {
	AssetRecordID string
	Condition     IssueCondition
	Page          int
	PageSize      int
}
