package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

const exportColumns = `id, format, status, file_path, error, requested_by, created_at, completed_at`

// ExportRepository tracks asynchronous export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a new job in the PENDING state.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ExportPending
	}
	const query = `INSERT INTO export_jobs (id, format, status, file_path, error, requested_by, created_at, completed_at)
	VALUES (:id, :format, :status, :file_path, :error, :requested_by, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID retrieves one job.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := `SELECT ` + exportColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus records a state transition, optionally attaching the rendered
// file path or the failure message.
func (r *ExportRepository) UpdateStatus(ctx context.Context, id, status string, filePath, errMsg *string) error {
	var completedAt *time.Time
	if status == models.ExportCompleted || status == models.ExportFailed {
		now := time.Now().UTC()
		completedAt = &now
	}
	const query = `UPDATE export_jobs SET status = $2, file_path = COALESCE($3, file_path), error = $4, completed_at = $5
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, filePath, errMsg, completedAt)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check export update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByUser returns the requester's jobs, newest first.
func (r *ExportRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + exportColumns + ` FROM export_jobs WHERE requested_by = $1 ORDER BY created_at DESC LIMIT $2`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}
