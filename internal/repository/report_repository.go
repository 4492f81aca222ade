package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

const reportColumns = `id, asset_record_id, asset_id, asset_name, condition, description,
       image_path, reported_by, created_at`

// ReportRepository persists the issue ledger.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create appends one ledger entry.
func (r *ReportRepository) Create(ctx context.Context, issue *models.ReportedIssue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reported_issues
	(id, asset_record_id, asset_id, asset_name, condition, description, image_path, reported_by, created_at)
	VALUES (:id, :asset_record_id, :asset_id, :asset_name, :condition, :description, :image_path, :reported_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("create reported issue: %w", err)
	}
	return nil
}

// List returns a filtered page of ledger entries, newest first.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportedIssue, int, error) {
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.AssetRecordID != "" {
		args = append(args, filter.AssetRecordID)
		conditions = append(conditions, fmt.Sprintf("asset_record_id = $%d", len(args)))
	}
	if filter.Condition != "" {
		args = append(args, filter.Condition)
		conditions = append(conditions, fmt.Sprintf("condition = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reported_issues"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reported issues: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	query := `SELECT ` + reportColumns + ` FROM reported_issues` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var issues []models.ReportedIssue
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reported issues: %w", err)
	}
	return issues, total, nil
}

// CountByAsset returns ledger entry counts keyed by live record identifier.
func (r *ReportRepository) CountByAsset(ctx context.Context) (map[string]int, error) {
	rows := []struct {
		AssetRecordID string `db:"asset_record_id"`
		Count         int    `db:"count"`
	}{}
	const query = `SELECT asset_record_id, COUNT(*) AS count FROM reported_issues GROUP BY asset_record_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count reported issues by asset: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.AssetRecordID] = row.Count
	}
	return counts, nil
}
