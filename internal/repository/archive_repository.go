package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

const archiveColumns = `id, original_record_id, asset_id, asset_name, category, sub_type, serial_no,
       operational_period, status, assigned_personnel, purchase_date, renewal_date,
       generate_qr, qr_image_path, canonical_url, image_path, history,
       created_by, created_at, updated_by, updated_at, deleted_at, deleted_by, deleted_by_email, deletion_reason`

// ArchiveRepository persists snapshots of deleted assets.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Create stores one archival snapshot. The snapshot must land before the live
// record is removed.
func (r *ArchiveRepository) Create(ctx context.Context, snapshot *models.ArchivedAssetRecord) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.DeletedAt.IsZero() {
		snapshot.DeletedAt = time.Now().UTC()
	}
	if snapshot.History == nil {
		snapshot.History = models.StatusHistory{}
	}
	const query = `INSERT INTO archived_assets
	(id, original_record_id, asset_id, asset_name, category, sub_type, serial_no,
	 operational_period, status, assigned_personnel, purchase_date, renewal_date,
	 generate_qr, qr_image_path, canonical_url, image_path, history,
	 created_by, created_at, updated_by, updated_at, deleted_at, deleted_by, deleted_by_email, deletion_reason)
	VALUES (:id, :original_record_id, :asset_id, :asset_name, :category, :sub_type, :serial_no,
	 :operational_period, :status, :assigned_personnel, :purchase_date, :renewal_date,
	 :generate_qr, :qr_image_path, :canonical_url, :image_path, :history,
	 :created_by, :created_at, :updated_by, :updated_at, :deleted_at, :deleted_by, :deleted_by_email, :deletion_reason)`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("create archive snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves one snapshot.
func (r *ArchiveRepository) GetByID(ctx context.Context, id string) (*models.ArchivedAssetRecord, error) {
	query := `SELECT ` + archiveColumns + ` FROM archived_assets WHERE id = $1`
	var snapshot models.ArchivedAssetRecord
	if err := r.db.GetContext(ctx, &snapshot, query, id); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns a filtered page of snapshots, most recent deletion first.
func (r *ArchiveRepository) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchivedAssetRecord, int, error) {
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(asset_name ILIKE $%d OR asset_id ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM archived_assets"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count archived assets: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	query := `SELECT ` + archiveColumns + ` FROM archived_assets` + where +
		fmt.Sprintf(" ORDER BY deleted_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var snapshots []models.ArchivedAssetRecord
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list archived assets: %w", err)
	}
	return snapshots, total, nil
}

// Purge removes a snapshot permanently. No further snapshot is taken.
func (r *ArchiveRepository) Purge(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archived_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("purge archived asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check purge rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
