package dto

import "github.com/hcf-itd/asset-registry-api/internal/models"

// CreateExportRequest queues an inventory export.
type CreateExportRequest struct {
	Format string `json:"format" binding:"required,oneof=csv pdf"`
	Title  string `json:"title"`
}

// ExportJobResponse is an export job with its signed download link, present
// only once the job has completed.
type ExportJobResponse struct {
	models.ExportJob
	DownloadURL string `json:"downloadUrl,omitempty"`
}
