package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type stubDeletionStore struct {
	records   map[string]*models.AssetRecord
	deleted   []string
	deleteErr error
}

func (s *stubDeletionStore) GetByID(_ context.Context, recordID string) (*models.AssetRecord, error) {
	record, ok := s.records[recordID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (s *stubDeletionStore) Delete(_ context.Context, recordID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.records[recordID]; !ok {
		return sql.ErrNoRows
	}
	delete(s.records, recordID)
	s.deleted = append(s.deleted, recordID)
	return nil
}

type stubArchiveStore struct {
	snapshots map[string]*models.ArchivedAssetRecord
	createErr error
	purged    []string
}

func (s *stubArchiveStore) Create(_ context.Context, snapshot *models.ArchivedAssetRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	if snapshot.ID == "" {
		snapshot.ID = "ar-" + snapshot.OriginalRecordID
	}
	if s.snapshots == nil {
		s.snapshots = map[string]*models.ArchivedAssetRecord{}
	}
	s.snapshots[snapshot.ID] = snapshot
	return nil
}

func (s *stubArchiveStore) GetByID(_ context.Context, id string) (*models.ArchivedAssetRecord, error) {
	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return snapshot, nil
}

func (s *stubArchiveStore) List(_ context.Context, _ models.ArchiveFilter) ([]models.ArchivedAssetRecord, int, error) {
	var out []models.ArchivedAssetRecord
	for _, snapshot := range s.snapshots {
		out = append(out, *snapshot)
	}
	return out, len(out), nil
}

func (s *stubArchiveStore) Purge(_ context.Context, id string) error {
	if _, ok := s.snapshots[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.snapshots, id)
	s.purged = append(s.purged, id)
	return nil
}

type stubArtifactRemover struct {
	removed []string
	err     error
}

func (s *stubArtifactRemover) Delete(filename string) error {
	if s.err != nil {
		return s.err
	}
	s.removed = append(s.removed, filename)
	return nil
}

type stubIdentity struct {
	users map[string]*models.User
	err   error
}

func (s *stubIdentity) FindByID(_ context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func deletableRecord() *models.AssetRecord {
	record := baseRecord()
	record.History = models.StatusHistory{{
		Timestamp: time.Now().Add(-24 * time.Hour),
		ChangedBy: "Ana Lim",
		From:      models.StatusFunctional,
		To:        models.StatusDefective,
		Reason:    "dropped in transit",
	}}
	return record
}

func TestDeleteAssetArchivesBeforeRemoval(t *testing.T) {
	assets := &stubDeletionStore{records: map[string]*models.AssetRecord{"rec-1": deletableRecord()}}
	archive := &stubArchiveStore{}
	users := &stubIdentity{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "sam.reyes@example.com", FullName: "Sam Reyes"},
	}}
	audit := &stubAudit{}
	svc := NewDeletionService(assets, archive, users, nil, audit, nil, nil)

	snapshot, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "rec-1", snapshot.OriginalRecordID)
	assert.Equal(t, "Sam Reyes", snapshot.DeletedBy)
	assert.Equal(t, "sam.reyes@example.com", snapshot.DeletedByEmail)
	assert.Equal(t, "decommissioned", snapshot.DeletionReason)
	require.Len(t, snapshot.History, 1, "full history travels into the snapshot")
	assert.Equal(t, []string{"rec-1"}, assets.deleted)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditAssetDelete, audit.logs[0].Action)
}

func TestDeleteAssetSnapshotKeepsFullRecord(t *testing.T) {
	record := deletableRecord()
	qrPath := "qr_asset_rec-1.png"
	imgPath := "asset_rec-1.jpg"
	record.GenerateQR = true
	record.QRImagePath = &qrPath
	record.CanonicalURL = "https://custom.example.org/a/1"
	record.ImagePath = &imgPath
	record.UpdatedBy = "u2"
	record.UpdatedAt = time.Now().Add(-time.Hour).UTC()

	assets := &stubDeletionStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	files := &stubArtifactRemover{}
	svc := NewDeletionService(assets, &stubArchiveStore{}, nil, files, nil, nil, nil)

	snapshot, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.NoError(t, err)
	assert.True(t, snapshot.GenerateQR)
	require.NotNil(t, snapshot.QRImagePath)
	assert.Equal(t, qrPath, *snapshot.QRImagePath)
	assert.Equal(t, "https://custom.example.org/a/1", snapshot.CanonicalURL)
	require.NotNil(t, snapshot.ImagePath)
	assert.Equal(t, imgPath, *snapshot.ImagePath)
	assert.Equal(t, "u2", snapshot.UpdatedBy)
	assert.Equal(t, record.UpdatedAt, snapshot.UpdatedAt)

	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"canonicalUrl":"https://custom.example.org/a/1"`)
	assert.Contains(t, string(raw), `"qrImagePath":"qr_asset_rec-1.png"`)
	assert.Contains(t, string(raw), `"updatedBy":"u2"`)

	assert.Equal(t, []string{qrPath}, files.removed, "the stored image is cleaned up once the live record is gone")
}

func TestDeleteAssetImageCleanupFailureIsNonFatal(t *testing.T) {
	record := deletableRecord()
	qrPath := "qr_asset_rec-1.png"
	record.GenerateQR = true
	record.QRImagePath = &qrPath

	assets := &stubDeletionStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	files := &stubArtifactRemover{err: errors.New("disk detached")}
	svc := NewDeletionService(assets, &stubArchiveStore{}, nil, files, nil, nil, nil)

	snapshot, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.NoError(t, err, "a stale file never fails the deletion")
	require.NotNil(t, snapshot.QRImagePath, "the snapshot still records where the image lived")
}

func TestDeleteAssetSnapshotFailureLeavesRecordLive(t *testing.T) {
	assets := &stubDeletionStore{records: map[string]*models.AssetRecord{"rec-1": deletableRecord()}}
	archive := &stubArchiveStore{createErr: errors.New("archive store unavailable")}
	svc := NewDeletionService(assets, archive, nil, nil, nil, nil, nil)

	_, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrArchivalFailed))
	assert.Empty(t, assets.deleted, "live record must stay untouched when archival fails")
	_, stillLive := assets.records["rec-1"]
	assert.True(t, stillLive)
}

func TestDeleteAssetRemovalFailureReportsPartialState(t *testing.T) {
	assets := &stubDeletionStore{
		records:   map[string]*models.AssetRecord{"rec-1": deletableRecord()},
		deleteErr: errors.New("connection reset"),
	}
	archive := &stubArchiveStore{}
	svc := NewDeletionService(assets, archive, nil, nil, nil, nil, nil)

	snapshot, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPartialDeletion))
	require.NotNil(t, snapshot, "the landed snapshot is reported for reconciliation")
	assert.Len(t, archive.snapshots, 1)
}

func TestDeleteAssetSecondRunFailsBeforeArchiving(t *testing.T) {
	assets := &stubDeletionStore{records: map[string]*models.AssetRecord{"rec-1": deletableRecord()}}
	archive := &stubArchiveStore{}
	svc := NewDeletionService(assets, archive, nil, nil, nil, nil, nil)

	_, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.NoError(t, err)
	require.Len(t, archive.snapshots, 1)

	_, err = svc.DeleteAsset(context.Background(), "rec-1", "again", testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Len(t, archive.snapshots, 1, "a repeated delete must not write another snapshot")
}

func TestDeleteAssetRequiresReason(t *testing.T) {
	svc := NewDeletionService(&stubDeletionStore{}, &stubArchiveStore{}, nil, nil, nil, nil, nil)

	_, err := svc.DeleteAsset(context.Background(), "rec-1", "  ", testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestDeleteAssetIdentityFallbackToClaims(t *testing.T) {
	assets := &stubDeletionStore{records: map[string]*models.AssetRecord{"rec-1": deletableRecord()}}
	archive := &stubArchiveStore{}
	users := &stubIdentity{err: errors.New("directory offline")}
	svc := NewDeletionService(assets, archive, users, nil, nil, nil, nil)

	snapshot, err := svc.DeleteAsset(context.Background(), "rec-1", "decommissioned", testActor())
	require.NoError(t, err)
	assert.Equal(t, "Sam Reyes", snapshot.DeletedBy)
	assert.Equal(t, "sam.reyes@example.com", snapshot.DeletedByEmail)
}

func TestPurgeArchivedRequiresSuperAdmin(t *testing.T) {
	archive := &stubArchiveStore{snapshots: map[string]*models.ArchivedAssetRecord{
		"ar-1": {ID: "ar-1", AssetID: "A-100"},
	}}
	svc := NewDeletionService(&stubDeletionStore{}, archive, nil, nil, nil, nil, nil)

	err := svc.PurgeArchived(context.Background(), "ar-1", testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	admin := testActor()
	admin.Role = models.RoleSuperAdmin
	err = svc.PurgeArchived(context.Background(), "ar-1", admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"ar-1"}, archive.purged)

	err = svc.PurgeArchived(context.Background(), "ar-1", admin)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
