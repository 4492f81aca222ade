package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

const assetColumns = `record_id, asset_id, asset_name, category, sub_type, serial_no,
       operational_period, status, assigned_personnel, purchase_date, renewal_date,
       generate_qr, qr_image_path, canonical_url, image_path, history,
       created_by, created_at, updated_by, updated_at, version`

// AssetRepository persists live asset records.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a new record. Fresh records start at version 1 with an empty
// history.
func (r *AssetRepository) Create(ctx context.Context, record *models.AssetRecord) error {
	if record.RecordID == "" {
		record.RecordID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.History == nil {
		record.History = models.StatusHistory{}
	}
	record.Version = 1
	const query = `INSERT INTO assets
	(record_id, asset_id, asset_name, category, sub_type, serial_no,
	 operational_period, status, assigned_personnel, purchase_date, renewal_date,
	 generate_qr, qr_image_path, canonical_url, image_path, history,
	 created_by, created_at, updated_by, updated_at, version)
	VALUES (:record_id, :asset_id, :asset_name, :category, :sub_type, :serial_no,
	 :operational_period, :status, :assigned_personnel, :purchase_date, :renewal_date,
	 :generate_qr, :qr_image_path, :canonical_url, :image_path, :history,
	 :created_by, :created_at, :updated_by, :updated_at, :version)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// GetByID retrieves one live record by its system identifier.
func (r *AssetRepository) GetByID(ctx context.Context, recordID string) (*models.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE record_id = $1`
	var record models.AssetRecord
	if err := r.db.GetContext(ctx, &record, query, recordID); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByAssetID retrieves one live record by its user-facing asset code.
func (r *AssetRepository) GetByAssetID(ctx context.Context, assetID string) (*models.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = $1`
	var record models.AssetRecord
	if err := r.db.GetContext(ctx, &record, query, assetID); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns a filtered page of records and the unbounded total.
func (r *AssetRepository) List(ctx context.Context, filter models.AssetFilter) ([]models.AssetRecord, int, error) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 6)

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.SubType != "" {
		args = append(args, filter.SubType)
		conditions = append(conditions, fmt.Sprintf("sub_type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedPersonnel != "" {
		args = append(args, filter.AssignedPersonnel)
		conditions = append(conditions, fmt.Sprintf("assigned_personnel = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(asset_name ILIKE $%d OR asset_id ILIKE $%d OR serial_no ILIKE $%d)", len(args), len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM assets"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}

	sortBy := filter.SortBy
	switch sortBy {
	case "asset_name", "asset_id", "category", "status", "renewal_date", "created_at", "updated_at":
	default:
		sortBy = "updated_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	query := `SELECT ` + assetColumns + ` FROM assets` + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d", sortBy, order, pageSize, (page-1)*pageSize)

	var records []models.AssetRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}
	return records, total, nil
}

// ListAll streams every record, used by exports and dashboard aggregation.
func (r *AssetRepository) ListAll(ctx context.Context) ([]models.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY asset_name ASC`
	var records []models.AssetRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list all assets: %w", err)
	}
	return records, nil
}

// Update rewrites the mutable fields of a record in a single statement,
// appending the optional status-change event to the history column in the
// same write. When expectedVersion is non-zero the write only lands if the
// stored version matches. Zero affected rows surface as sql.ErrNoRows; the
// caller distinguishes a missing record from a version conflict.
func (r *AssetRepository) Update(ctx context.Context, record *models.AssetRecord, event *models.StatusChangeEvent, expectedVersion int64) error {
	record.UpdatedAt = time.Now().UTC()

	var eventJSON interface{}
	if event != nil {
		raw, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode status event: %w", err)
		}
		eventJSON = raw
	}

	const query = `UPDATE assets SET
	 asset_id = $2, asset_name = $3, category = $4, sub_type = $5, serial_no = $6,
	 operational_period = $7, status = $8, assigned_personnel = $9,
	 purchase_date = $10, renewal_date = $11, generate_qr = $12,
	 qr_image_path = $13, canonical_url = $14, image_path = $15,
	 history = CASE WHEN $16::jsonb IS NULL THEN history ELSE history || $16::jsonb END,
	 updated_by = $17, updated_at = $18, version = version + 1
	WHERE record_id = $1 AND ($19 = 0 OR version = $19)`

	res, err := r.db.ExecContext(ctx, query,
		record.RecordID, record.AssetID, record.AssetName, record.Category,
		record.SubType, record.SerialNo, record.OperationalPeriod, record.Status,
		record.AssignedPersonnel, record.PurchaseDate, record.RenewalDate,
		record.GenerateQR, record.QRImagePath, record.CanonicalURL, record.ImagePath,
		eventJSON, record.UpdatedBy, record.UpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check asset update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetQRArtifact binds or clears the rendered QR image of a record. A nil path
// clears the binding.
func (r *AssetRepository) SetQRArtifact(ctx context.Context, recordID string, path *string, canonicalURL string) error {
	const query = `UPDATE assets SET generate_qr = $2, qr_image_path = $3, canonical_url = $4, updated_at = $5
	WHERE record_id = $1`
	res, err := r.db.ExecContext(ctx, query, recordID, path != nil, path, canonicalURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set qr artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check qr artifact rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a live record permanently.
func (r *AssetRepository) Delete(ctx context.Context, recordID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE record_id = $1`, recordID)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check asset delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates live records per status.
func (r *AssetRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var counts []models.StatusCount
	const query = `SELECT status, COUNT(*) AS count FROM assets GROUP BY status`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count assets by status: %w", err)
	}
	return counts, nil
}

// CountByCategory aggregates live records per category.
func (r *AssetRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	var counts []models.CategoryCount
	const query = `SELECT category, COUNT(*) AS count FROM assets GROUP BY category`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count assets by category: %w", err)
	}
	return counts, nil
}
