package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AssetStatus is the operational state of a tracked asset.
type AssetStatus string

const (
	StatusFunctional       AssetStatus = "Functional"
	StatusUnderMaintenance AssetStatus = "Under Maintenance"
	StatusDefective        AssetStatus = "Defective"
	StatusUnserviceable    AssetStatus = "Unserviceable"
)

// Valid reports whether the status is one of the known states.
func (s AssetStatus) Valid() bool {
	switch s {
	case StatusFunctional, StatusUnderMaintenance, StatusDefective, StatusUnserviceable:
		return true
	}
	return false
}

// OperationalPeriod classifies how an asset's validity is bounded in time.
type OperationalPeriod string

const (
	PeriodPerpetual    OperationalPeriod = "Perpetual"
	PeriodSubscription OperationalPeriod = "Subscription"
	PeriodTrial        OperationalPeriod = "Trial"
	PeriodOEM          OperationalPeriod = "OEM"
	PeriodOpenSource   OperationalPeriod = "Open Source"
)

// NonExpiring reports whether the period exempts the record from expiry
// computations; the renewal date is ignored for these.
func (p OperationalPeriod) NonExpiring() bool {
	switch p {
	case PeriodPerpetual, PeriodOEM, PeriodOpenSource:
		return true
	}
	return false
}

// Valid reports whether the period is one of the known classifications.
func (p OperationalPeriod) Valid() bool {
	switch p {
	case PeriodPerpetual, PeriodSubscription, PeriodTrial, PeriodOEM, PeriodOpenSource:
		return true
	}
	return false
}

// Category values with constrained sub-types. Other categories carry a free
// sub-type value.
const (
	CategoryAsset   = "Asset"
	CategoryLicense = "License"
)

// AssetSubTypes enumerates sub-types for the Asset category.
var AssetSubTypes = []string{
	"Furniture and Fixture",
	"Desktop",
	"Laptop",
	"Printer",
	"Server",
	"Machinery/Equipment",
	"Infrastructure",
	"Vehicles/Transport",
}

// LicenseSubTypes enumerates sub-types for the License category.
var LicenseSubTypes = []string{
	"Software License",
	"Business License",
	"Government License",
	"General License",
}

// ValidSubType checks the category-dependent sub-type constraint. An empty
// sub-type is always permitted.
func ValidSubType(category, subType string) bool {
	if subType == "" {
		return true
	}
	switch category {
	case CategoryAsset:
		return containsString(AssetSubTypes, subType)
	case CategoryLicense:
		return containsString(LicenseSubTypes, subType)
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// StatusChangeEvent is one immutable entry of an asset's status history.
// MaintainedBy is set only for the Under Maintenance -> Functional transition.
type StatusChangeEvent struct {
	Timestamp    time.Time   `json:"timestamp"`
	ChangedBy    string      `json:"changedBy"`
	From         AssetStatus `json:"from"`
	To           AssetStatus `json:"to"`
	Reason       string      `json:"reason"`
	MaintainedBy string      `json:"maintainedBy,omitempty"`
}

// StatusHistory is the append-only event sequence, stored as a JSONB column.
type StatusHistory []StatusChangeEvent

// Value implements driver.Valuer for JSONB persistence.
func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (h *StatusHistory) Scan(src interface{}) error {
	if src == nil {
		*h = StatusHistory{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported history column type %T", src)
	}
	return json.Unmarshal(raw, h)
}

// AssetRecord is the authoritative live asset document. RecordID is
// system-assigned and never reused; AssetID is the user-facing code embedded
// in QR payloads and URLs.
type AssetRecord struct {
	RecordID          string            `db:"record_id" json:"recordId"`
	AssetID           string            `db:"asset_id" json:"assetId"`
	AssetName         string            `db:"asset_name" json:"assetName"`
	Category          string            `db:"category" json:"category"`
	SubType           string            `db:"sub_type" json:"subType"`
	SerialNo          string            `db:"serial_no" json:"serialNo"`
	OperationalPeriod OperationalPeriod `db:"operational_period" json:"operationalPeriod"`
	Status            AssetStatus       `db:"status" json:"status"`
	AssignedPersonnel *string           `db:"assigned_personnel" json:"assignedPersonnel,omitempty"`
	PurchaseDate      *time.Time        `db:"purchase_date" json:"purchaseDate,omitempty"`
	RenewalDate       *time.Time        `db:"renewal_date" json:"renewalDate,omitempty"`
	GenerateQR        bool              `db:"generate_qr" json:"generateQr"`
	QRImagePath       *string           `db:"qr_image_path" json:"qrImagePath,omitempty"`
	CanonicalURL      string            `db:"canonical_url" json:"canonicalUrl"`
	ImagePath         *string           `db:"image_path" json:"imagePath,omitempty"`
	History           StatusHistory     `db:"history" json:"history"`
	CreatedBy         string            `db:"created_by" json:"createdBy"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedBy         string            `db:"updated_by" json:"updatedBy"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
	Version           int64             `db:"version" json:"version"`
}

// AssetFilter captures listing criteria.
type AssetFilter struct {
	Category          string
	SubType           string
	Status            AssetStatus
	AssignedPersonnel string
	Search            string
	Page              int
	PageSize          int
	SortBy            string
	SortOrder         string
}

// StatusCount pairs a status value with its asset count.
type StatusCount struct {
	Status AssetStatus `db:"status" json:"status"`
	Count  int         `db:"count" json:"count"`
}

// CategoryCount pairs a category with its asset count.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}
