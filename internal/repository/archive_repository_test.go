package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

func TestCreateArchiveSnapshotDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectExec("INSERT INTO archived_assets").WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &models.ArchivedAssetRecord{
		OriginalRecordID: "rec-1",
		AssetID:          "A-100",
		AssetName:        "Ward Laptop",
		Category:         models.CategoryAsset,
		Status:           models.StatusDefective,
		DeletedBy:        "Jordan Cruz",
		DeletedByEmail:   "jordan@example.com",
		DeletionReason:   "beyond repair",
	}
	err := repo.Create(context.Background(), snapshot)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.ID)
	assert.False(t, snapshot.DeletedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListArchivedAssets(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM archived_assets")).WillReturnRows(countRows)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "original_record_id", "asset_id", "asset_name", "category", "sub_type", "serial_no",
		"operational_period", "status", "assigned_personnel", "purchase_date", "renewal_date",
		"generate_qr", "qr_image_path", "canonical_url", "image_path", "history",
		"created_by", "created_at", "updated_by", "updated_at", "deleted_at", "deleted_by", "deleted_by_email", "deletion_reason",
	}).AddRow(
		"ar-1", "rec-1", "A-100", "Ward Laptop", "Asset", "Laptop", "SN-1",
		"Subscription", "Defective", nil, nil, nil,
		true, "qr_asset_rec-1.png", "https://assets.example.org/dashboard/A-100", nil,
		[]byte(`[{"timestamp":"2026-01-05T10:00:00Z","changedBy":"u1","from":"Functional","to":"Defective","reason":"screen cracked"}]`),
		"u1", now, "u1", now, now, "Jordan Cruz", "jordan@example.com", "beyond repair",
	)
	mock.ExpectQuery("SELECT .+ FROM archived_assets ORDER BY deleted_at DESC").WillReturnRows(rows)

	snapshots, total, err := repo.List(context.Background(), models.ArchiveFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, snapshots, 1)
	require.Len(t, snapshots[0].History, 1)
	assert.Equal(t, models.StatusDefective, snapshots[0].History[0].To)
	assert.True(t, snapshots[0].GenerateQR)
	require.NotNil(t, snapshots[0].QRImagePath)
	assert.Equal(t, "https://assets.example.org/dashboard/A-100", snapshots[0].CanonicalURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeArchivedAssetNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archived_assets WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Purge(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
