package models

import "time"

// Audit actions.
const (
	AuditLogin          = "LOGIN"
	AuditLogout         = "LOGOUT"
	AuditPasswordChange = "PASSWORD_CHANGE"
	AuditAssetCreate    = "ASSET_CREATE"
	AuditAssetEdit      = "ASSET_EDIT"
	AuditAssetDelete    = "ASSET_DELETE"
	AuditQRMaterialize  = "QR_MATERIALIZE"
	AuditArchivePurge   = "ARCHIVE_PURGE"
	AuditReportCreate   = "REPORT_CREATE"
	AuditUserRegister   = "USER_REGISTER"
	AuditUserApprove    = "USER_APPROVE"
	AuditUserReject     = "USER_REJECT"
	AuditExportRequest  = "EXPORT_REQUEST"
)

// AuditLog is one trail entry. Detail holds a short human-readable summary of
// what changed; ResourceID points at the affected record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     string    `db:"detail" json:"detail"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
