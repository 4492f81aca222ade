package models

import "time"

// ArchivedAssetRecord is the full snapshot taken of a live asset immediately
// before its removal. Every field of the live record is carried over verbatim,
// including the QR binding and the complete status history, so the lifecycle
// trail survives deletion of the live record.
type ArchivedAssetRecord struct {
	ID                string            `db:"id" json:"id"`
	OriginalRecordID  string            `db:"original_record_id" json:"originalRecordId"`
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
	DeletedAt         time.Time         `db:"deleted_at" json:"deletedAt"`
	DeletedBy         string            `db:"deleted_by" json:"deletedBy"`
	DeletedByEmail    string            `db:"deleted_by_email" json:"deletedByEmail"`
	DeletionReason    string            `db:"deletion_reason" json:"deletionReason"`
}

// ArchiveFilter captures archive listing criteria.
type ArchiveFilter struct {
	Category string
	Search   string
	Page     int
	PageSize int
}
