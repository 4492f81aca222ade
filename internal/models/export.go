package models

import "time"

// Export formats and job states.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"

	ExportPending    = "PENDING"
	ExportProcessing = "PROCESSING"
	ExportCompleted  = "COMPLETED"
	ExportFailed     = "FAILED"
)

// ExportJob tracks an asynchronous inventory export from request to rendered
// artifact.
type ExportJob struct {
	ID          string     `db:"id" json:"id"`
	Format      string     `db:"format" json:"format"`
	Status      string     `db:"status" json:"status"`
	FilePath    *string    `db:"file_path" json:"-"`
	Error       *string    `db:"error" json:"error,omitempty"`
	RequestedBy string     `db:"requested_by" json:"requestedBy"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}
