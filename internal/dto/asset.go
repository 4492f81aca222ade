package dto

import (
	"time"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

// CreateAssetRequest registers a new asset. Dates arrive as YYYY-MM-DD.
type CreateAssetRequest struct {
	AssetID           string `json:"assetId" binding:"required"`
	AssetName         string `json:"assetName" binding:"required"`
	Category          string `json:"category" binding:"required"`
	SubType           string `json:"subType"`
	SerialNo          string `json:"serialNo"`
	OperationalPeriod string `json:"operationalPeriod" binding:"required"`
	Status            string `json:"status" binding:"required"`
	AssignedPersonnel string `json:"assignedPersonnel"`
	PurchaseDate      string `json:"purchaseDate"`
	RenewalDate       string `json:"renewalDate"`
	GenerateQR        bool   `json:"generateQr"`
	AcceptOversizeQR  bool   `json:"acceptOversizeQr"`
}

// EditAssetRequest is a full-record edit. When Status differs from the stored
// status, Reason is mandatory; MaintainedBy is mandatory only when a record
// leaves Under Maintenance for Functional. Version enables compare-and-swap
// writes; zero skips the check.
type EditAssetRequest struct {
	AssetID           string `json:"assetId" binding:"required"`
	AssetName         string `json:"assetName" binding:"required"`
	Category          string `json:"category" binding:"required"`
	SubType           string `json:"subType"`
	SerialNo          string `json:"serialNo"`
	OperationalPeriod string `json:"operationalPeriod" binding:"required"`
	Status            string `json:"status" binding:"required"`
	AssignedPersonnel string `json:"assignedPersonnel"`
	PurchaseDate      string `json:"purchaseDate"`
	RenewalDate       string `json:"renewalDate"`
	Reason            string `json:"reason"`
	MaintainedBy      string `json:"maintainedBy"`
	GenerateQR        bool   `json:"generateQr"`
	AcceptOversizeQR  bool   `json:"acceptOversizeQr"`
	Version           int64  `json:"version"`
}

// MaterializeQRRequest renders and binds a QR artifact for an existing record.
type MaterializeQRRequest struct {
	URLOverride      string `json:"urlOverride"`
	AcceptOversizeQR bool   `json:"acceptOversizeQr"`
}

// ExpiryBadge is the derived validity classification shown next to a record.
type ExpiryBadge struct {
	Class    string `json:"class"`
	Label    string `json:"label"`
	DaysLeft *int   `json:"daysLeft,omitempty"`
}

// AnnotatedAsset is a live record joined with its report-ledger summary and
// expiry classification. The underlying record is never mutated by the join.
type AnnotatedAsset struct {
	models.AssetRecord
	ReportCount    int         `json:"reportCount"`
	HasOpenReports bool        `json:"hasOpenReports"`
	Expiry         ExpiryBadge `json:"expiry"`
}

// ListAssetsQuery binds the listing query string.
type ListAssetsQuery struct {
	Category          string `form:"category"`
	SubType           string `form:"sub_type"`
	Status            string `form:"status"`
	AssignedPersonnel string `form:"assigned_personnel"`
	Search            string `form:"search"`
	Page              int    `form:"page,default=1"`
	PageSize          int    `form:"page_size,default=20"`
	SortBy            string `form:"sort_by,default=updated_at"`
	SortOrder         string `form:"sort_order,default=desc"`
}

// ParseDate parses an optional YYYY-MM-DD value.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
