package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/models"
)

func TestCreateReportedIssue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("INSERT INTO reported_issues").WillReturnResult(sqlmock.NewResult(1, 1))

	issue := &models.ReportedIssue{
		AssetRecordID: "rec-1",
		AssetID:       "A-100",
		AssetName:     "Ward Laptop",
		Condition:     models.ConditionDamaged,
		Description:   "keyboard missing keys",
		ReportedBy:    "u2",
	}
	err := repo.Create(context.Background(), issue)
	require.NoError(t, err)
	assert.NotEmpty(t, issue.ID)
	assert.False(t, issue.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByAsset(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"asset_record_id", "count"}).
		AddRow("rec-1", 3).
		AddRow("rec-2", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT asset_record_id, COUNT(*) AS count FROM reported_issues GROUP BY asset_record_id")).
		WillReturnRows(rows)

	counts, err := repo.CountByAsset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts["rec-1"])
	assert.Equal(t, 1, counts["rec-2"])
	assert.Zero(t, counts["rec-3"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
