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

type stubAssetStore struct {
	records    map[string]*models.AssetRecord
	created    []*models.AssetRecord
	updated    *models.AssetRecord
	lastEvent  *models.StatusChangeEvent
	lastExpect int64
	updateErr  error
	createErr  error
}

func (s *stubAssetStore) Create(_ context.Context, record *models.AssetRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	if record.RecordID == "" {
		record.RecordID = "rec-new"
	}
	record.Version = 1
	s.created = append(s.created, record)
	return nil
}

func (s *stubAssetStore) GetByID(_ context.Context, recordID string) (*models.AssetRecord, error) {
	record, ok := s.records[recordID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (s *stubAssetStore) List(_ context.Context, _ models.AssetFilter) ([]models.AssetRecord, int, error) {
	var out []models.AssetRecord
	for _, record := range s.records {
		out = append(out, *record)
	}
	return out, len(out), nil
}

func (s *stubAssetStore) Update(_ context.Context, record *models.AssetRecord, event *models.StatusChangeEvent, expectedVersion int64) error {
	s.lastEvent = event
	s.lastExpect = expectedVersion
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = record
	return nil
}

type stubReportLedger struct {
	counts map[string]int
	err    error
}

func (s *stubReportLedger) CountByAsset(_ context.Context) (map[string]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.counts, nil
}

type stubAudit struct {
	logs []*models.AuditLog
	err  error
}

func (s *stubAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if s.err != nil {
		return s.err
	}
	s.logs = append(s.logs, log)
	return nil
}

type stubCache struct {
	patterns []string
}

func (s *stubCache) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

type stubBinder struct {
	attached []string
	detached []string
	removed  []string
	err      error
}

func (s *stubBinder) Attach(record *models.AssetRecord, _ string, _ bool) error {
	if s.err != nil {
		return s.err
	}
	path := "qr_asset_" + record.RecordID + ".png"
	record.GenerateQR = true
	record.QRImagePath = &path
	s.attached = append(s.attached, record.RecordID)
	return nil
}

func (s *stubBinder) Detach(record *models.AssetRecord) *string {
	stale := record.QRImagePath
	record.GenerateQR = false
	record.QRImagePath = nil
	s.detached = append(s.detached, record.RecordID)
	return stale
}

func (s *stubBinder) RemoveArtifact(_ string, path *string) {
	if path != nil {
		s.removed = append(s.removed, *path)
	}
}

func testActor() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:   "u1",
		Email:    "sam.reyes@example.com",
		FullName: "Sam Reyes",
		Role:     models.RolePersonnel,
	}
}

func baseRecord() *models.AssetRecord {
	return &models.AssetRecord{
		RecordID:          "rec-1",
		AssetID:           "A-100",
		AssetName:         "Ward Laptop",
		Category:          models.CategoryAsset,
		SubType:           "Laptop",
		SerialNo:          "SN-1",
		OperationalPeriod: models.PeriodSubscription,
		Status:            models.StatusFunctional,
		History:           models.StatusHistory{},
		Version:           3,
	}
}

func editRequestFrom(record *models.AssetRecord) dto.EditAssetRequest {
	return dto.EditAssetRequest{
		AssetID:           record.AssetID,
		AssetName:         record.AssetName,
		Category:          record.Category,
		SubType:           record.SubType,
		SerialNo:          record.SerialNo,
		OperationalPeriod: string(record.OperationalPeriod),
		Status:            string(record.Status),
	}
}

func TestApplyEditStatusChangeRequiresReason(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	req := editRequestFrom(baseRecord())
	req.Status = string(models.StatusDefective)

	_, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Nil(t, store.updated, "record must not be written when validation fails")
}

func TestApplyEditMaintainerRequiredOnlyForReturnToService(t *testing.T) {
	record := baseRecord()
	record.Status = models.StatusUnderMaintenance
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	req := editRequestFrom(record)
	req.Status = string(models.StatusFunctional)
	req.Reason = "repair completed"

	_, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	req.MaintainedBy = "TechServ Inc."
	updated, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.NoError(t, err)
	require.NotNil(t, store.lastEvent)
	assert.Equal(t, "TechServ Inc.", store.lastEvent.MaintainedBy)
	assert.Equal(t, models.StatusUnderMaintenance, store.lastEvent.From)
	assert.Equal(t, models.StatusFunctional, store.lastEvent.To)
	assert.Equal(t, models.StatusFunctional, updated.Status)

	// Any other transition carries no maintainer even when one is supplied.
	record2 := baseRecord()
	store2 := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": record2}}
	svc2 := NewAssetService(store2, nil, nil, nil, nil, nil)
	req2 := editRequestFrom(record2)
	req2.Status = string(models.StatusDefective)
	req2.Reason = "screen cracked"
	req2.MaintainedBy = "should be ignored"
	_, err = svc2.ApplyEdit(context.Background(), "rec-1", req2, testActor())
	require.NoError(t, err)
	require.NotNil(t, store2.lastEvent)
	assert.Empty(t, store2.lastEvent.MaintainedBy)
}

func TestMaintenanceCycleAccumulatesHistory(t *testing.T) {
	record := baseRecord()
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	req := editRequestFrom(record)
	req.Status = string(models.StatusUnderMaintenance)
	req.Reason = "fan noise"
	updated, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.NoError(t, err)
	require.Len(t, updated.History, 1)
	store.records["rec-1"] = updated

	req = editRequestFrom(updated)
	req.Status = string(models.StatusFunctional)
	req.Reason = "repair completed"
	_, err = svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	require.Len(t, store.records["rec-1"].History, 1, "failed edit must not grow the history")

	req.MaintainedBy = "J. Cruz"
	final, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.NoError(t, err)
	require.Len(t, final.History, 2)
	assert.Equal(t, "J. Cruz", final.History[1].MaintainedBy)
	assert.Equal(t, models.StatusUnderMaintenance, final.History[1].From)
	assert.Equal(t, models.StatusFunctional, final.History[1].To)
}

func TestApplyEditAppendsExactlyOneEvent(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	audit := &stubAudit{}
	svc := NewAssetService(store, nil, nil, audit, nil, nil)

	req := editRequestFrom(baseRecord())
	req.Status = string(models.StatusUnderMaintenance)
	req.Reason = "annual servicing"

	updated, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.NoError(t, err)
	require.NotNil(t, store.lastEvent)
	require.Len(t, updated.History, 1)
	assert.Equal(t, "Sam Reyes", updated.History[0].ChangedBy)
	assert.Equal(t, "annual servicing", updated.History[0].Reason)
	assert.Equal(t, int64(4), updated.Version)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditAssetEdit, audit.logs[0].Action)
}

func TestApplyEditWithoutStatusChangeLeavesHistoryAlone(t *testing.T) {
	record := baseRecord()
	record.History = models.StatusHistory{{
		Timestamp: time.Now().Add(-time.Hour),
		ChangedBy: "Ana Lim",
		From:      models.StatusDefective,
		To:        models.StatusFunctional,
		Reason:    "replaced battery",
	}}
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	req := editRequestFrom(record)
	req.AssetName = "Ward Laptop 2"

	updated, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.NoError(t, err)
	assert.Nil(t, store.lastEvent, "no event may be appended without a status change")
	assert.Len(t, updated.History, 1)
	assert.Equal(t, "Ward Laptop 2", updated.AssetName)
}

func TestApplyEditVersionConflict(t *testing.T) {
	store := &stubAssetStore{
		records:   map[string]*models.AssetRecord{"rec-1": baseRecord()},
		updateErr: sql.ErrNoRows,
	}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	req := editRequestFrom(baseRecord())
	req.Version = 2

	_, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionMismatch))
	assert.Equal(t, int64(2), store.lastExpect)
}

func TestApplyEditUnknownRecord(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{}}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	_, err := svc.ApplyEdit(context.Background(), "missing", editRequestFrom(baseRecord()), testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestApplyEditInvalidStatusRejected(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	svc := NewAssetService(store, nil, nil, nil, nil, nil)

	req := editRequestFrom(baseRecord())
	req.Status = "Broken"

	_, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Nil(t, store.updated)
}

func TestApplyEditQRFailureAbortsWrite(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	binder := &stubBinder{err: appErrors.ErrQRSizeExceeded}
	svc := NewAssetService(store, nil, binder, nil, nil, nil)

	req := editRequestFrom(baseRecord())
	req.GenerateQR = true

	_, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrQRSizeExceeded))
	assert.Nil(t, store.updated, "a rejected qr artifact must leave the record untouched")
}

func TestApplyEditDisablingQRDetaches(t *testing.T) {
	record := baseRecord()
	path := "qr_asset_rec-1.png"
	record.GenerateQR = true
	record.QRImagePath = &path
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	binder := &stubBinder{}
	svc := NewAssetService(store, nil, binder, nil, nil, nil)

	req := editRequestFrom(record)
	req.GenerateQR = false

	updated, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.NoError(t, err)
	assert.False(t, updated.GenerateQR)
	assert.Nil(t, updated.QRImagePath)
	assert.Equal(t, []string{"rec-1"}, binder.detached)
	assert.Equal(t, []string{path}, binder.removed, "the stale image goes once the write has landed")
}

func TestApplyEditConflictKeepsStoredQRImage(t *testing.T) {
	record := baseRecord()
	path := "qr_asset_rec-1.png"
	record.GenerateQR = true
	record.QRImagePath = &path
	record.Version = 3
	store := &stubAssetStore{
		records:   map[string]*models.AssetRecord{"rec-1": record},
		updateErr: sql.ErrNoRows,
	}
	binder := &stubBinder{}
	svc := NewAssetService(store, nil, binder, nil, nil, nil)

	req := editRequestFrom(record)
	req.GenerateQR = false
	req.Version = 2

	_, err := svc.ApplyEdit(context.Background(), "rec-1", req, testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionMismatch))
	assert.Empty(t, binder.removed, "the live record still points at its image after a failed write")
}

func TestCreateAssetStartsWithEmptyHistory(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{}}
	cache := &stubCache{}
	svc := NewAssetService(store, nil, nil, nil, cache, nil)

	record, err := svc.Create(context.Background(), dto.CreateAssetRequest{
		AssetID:           "A-200",
		AssetName:         "Pharmacy Printer",
		Category:          models.CategoryAsset,
		SubType:           "Printer",
		OperationalPeriod: string(models.PeriodPerpetual),
		Status:            string(models.StatusFunctional),
	}, testActor())
	require.NoError(t, err)
	assert.Empty(t, record.History)
	assert.Equal(t, int64(1), record.Version)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestListAnnotatesRecords(t *testing.T) {
	store := &stubAssetStore{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	reports := &stubReportLedger{counts: map[string]int{"rec-1": 2}}
	svc := NewAssetService(store, reports, nil, nil, nil, nil)

	annotated, page, err := svc.List(context.Background(), dto.ListAssetsQuery{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, annotated, 1)
	assert.Equal(t, 2, annotated[0].ReportCount)
	assert.True(t, annotated[0].HasOpenReports)
	assert.Equal(t, 1, page.TotalItems)
}
