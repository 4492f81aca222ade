package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type stubReportStore struct {
	issues []*models.ReportedIssue
	counts map[string]int
}

func (s *stubReportStore) Create(_ context.Context, issue *models.ReportedIssue) error {
	issue.ID = "rep-1"
	s.issues = append(s.issues, issue)
	return nil
}

func (s *stubReportStore) List(_ context.Context, _ models.ReportFilter) ([]models.ReportedIssue, int, error) {
	var out []models.ReportedIssue
	for _, issue := range s.issues {
		out = append(out, *issue)
	}
	return out, len(out), nil
}

func (s *stubReportStore) CountByAsset(_ context.Context) (map[string]int, error) {
	return s.counts, nil
}

type stubReportAssets struct {
	records map[string]*models.AssetRecord
}

func (s *stubReportAssets) GetByID(_ context.Context, recordID string) (*models.AssetRecord, error) {
	record, ok := s.records[recordID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

type stubReportStorage struct {
	saved map[string][]byte
}

func (s *stubReportStorage) Save(filename string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[filename] = data
	return filename, nil
}

func TestSubmitDenormalizesAssetIdentity(t *testing.T) {
	store := &stubReportStore{}
	assets := &stubReportAssets{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	svc := NewReportService(store, assets, &stubReportStorage{}, nil, nil, 0)

	issue, err := svc.Submit(context.Background(), dto.CreateReportRequest{
		AssetRecordID: "rec-1",
		Condition:     string(models.ConditionDamaged),
		Description:   "keyboard missing keys",
	}, nil, testActor())
	require.NoError(t, err)
	assert.Equal(t, "A-100", issue.AssetID)
	assert.Equal(t, "Ward Laptop", issue.AssetName)
	assert.Equal(t, "Sam Reyes", issue.ReportedBy)
}

func TestSubmitValidatesConditionAndDescription(t *testing.T) {
	assets := &stubReportAssets{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	svc := NewReportService(&stubReportStore{}, assets, &stubReportStorage{}, nil, nil, 0)

	_, err := svc.Submit(context.Background(), dto.CreateReportRequest{
		AssetRecordID: "rec-1",
		Condition:     "Annoying",
		Description:   "whatever",
	}, nil, testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), dto.CreateReportRequest{
		AssetRecordID: "rec-1",
		Condition:     string(models.ConditionDefective),
		Description:   "   ",
	}, nil, testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSubmitRejectsOversizeImage(t *testing.T) {
	assets := &stubReportAssets{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	svc := NewReportService(&stubReportStore{}, assets, &stubReportStorage{}, nil, nil, 8)

	_, err := svc.Submit(context.Background(), dto.CreateReportRequest{
		AssetRecordID: "rec-1",
		Condition:     string(models.ConditionDefective),
		Description:   "overheating",
	}, &ReportImage{Filename: "photo.jpg", Data: make([]byte, 16)}, testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAnnotateWithReportsJoin(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	recordA := *baseRecord()
	recordB := *baseRecord()
	recordB.RecordID = "rec-2"
	recordB.AssetID = "A-200"

	records := []models.AssetRecord{recordA, recordB}
	counts := map[string]int{"rec-1": 3}

	annotated := AnnotateWithReports(records, counts, now)
	require.Len(t, annotated, 2)

	assert.Equal(t, 3, annotated[0].ReportCount)
	assert.True(t, annotated[0].HasOpenReports)
	assert.Equal(t, 0, annotated[1].ReportCount)
	assert.False(t, annotated[1].HasOpenReports)

	// The join must leave both inputs untouched.
	assert.Equal(t, "A-100", records[0].AssetID)
	assert.Equal(t, map[string]int{"rec-1": 3}, counts)
}

func TestAnnotateWithReportsEmptyInputs(t *testing.T) {
	annotated := AnnotateWithReports(nil, nil, time.Now())
	assert.Empty(t, annotated)

	annotated = AnnotateWithReports([]models.AssetRecord{*baseRecord()}, nil, time.Now())
	require.Len(t, annotated, 1)
	assert.Zero(t, annotated[0].ReportCount)
}
