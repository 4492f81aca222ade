package dto

// CreateReportRequest files an issue against a live asset. The image is
// uploaded separately as multipart content; ImagePath is set server-side.
type CreateReportRequest struct {
	AssetRecordID string `json:"assetRecordId" form:"assetRecordId" binding:"required"`
	Condition     string `json:"condition" form:"condition" binding:"required"`
	Description   string `json:"description" form:"description" binding:"required"`
}

// ListReportsQuery binds the report listing query string.
type ListReportsQuery struct {
	AssetRecordID string `form:"asset_record_id"`
	Condition     string `form:"condition"`
	Page          int    `form:"page,default=1"`
	PageSize      int    `form:"page_size,default=20"`
}
