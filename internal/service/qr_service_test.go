package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/qr"
)

type stubQRStore struct {
	records   map[string]*models.AssetRecord
	boundPath *string
	boundURL  string
	setCalls  int
}

func (s *stubQRStore) GetByID(_ context.Context, recordID string) (*models.AssetRecord, error) {
	record, ok := s.records[recordID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (s *stubQRStore) SetQRArtifact(_ context.Context, _ string, path *string, canonicalURL string) error {
	s.setCalls++
	s.boundPath = path
	s.boundURL = canonicalURL
	return nil
}

type stubQRStorage struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func (s *stubQRStorage) Save(filename string, data []byte) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[filename] = data
	return filename, nil
}

func (s *stubQRStorage) Delete(filename string) error {
	s.deleted = append(s.deleted, filename)
	return nil
}

func newQRService(store *stubQRStore, storage *stubQRStorage, cfg QRServiceConfig) *QRService {
	if cfg.PublicOrigin == "" {
		cfg.PublicOrigin = "https://assets.example.org"
	}
	return NewQRService(store, storage, qr.NewEncoder(250), nil, nil, cfg)
}

func TestCanonicalURLDerivation(t *testing.T) {
	svc := newQRService(&stubQRStore{}, &stubQRStorage{}, QRServiceConfig{})

	assert.Equal(t, "https://assets.example.org/dashboard/A-100", svc.CanonicalURL("A-100", ""))
	assert.Equal(t, "https://custom.example.org/a/1", svc.CanonicalURL("A-100", "https://custom.example.org/a/1"))
}

func TestRenderWithinThresholdSucceeds(t *testing.T) {
	svc := newQRService(&stubQRStore{}, &stubQRStorage{}, QRServiceConfig{})

	png, err := svc.Render("A-100", "https://assets.example.org/dashboard/A-100", false)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestRenderAboveWarnThresholdNeedsAcceptance(t *testing.T) {
	svc := newQRService(&stubQRStore{}, &stubQRStorage{}, QRServiceConfig{WarnSizeBytes: 10})

	_, err := svc.Render("A-100", "https://assets.example.org/dashboard/A-100", false)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrQRSizeConfirm))

	png, err := svc.Render("A-100", "https://assets.example.org/dashboard/A-100", true)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestRenderAboveCeilingAlwaysFails(t *testing.T) {
	svc := newQRService(&stubQRStore{}, &stubQRStorage{}, QRServiceConfig{WarnSizeBytes: 5, AbortSizeBytes: 10})

	_, err := svc.Render("A-100", "https://assets.example.org/dashboard/A-100", true)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrQRSizeExceeded))
}

func TestAttachBindsPayload(t *testing.T) {
	storage := &stubQRStorage{}
	svc := newQRService(&stubQRStore{}, storage, QRServiceConfig{})

	record := baseRecord()
	err := svc.Attach(record, "", false)
	require.NoError(t, err)
	assert.True(t, record.GenerateQR)
	require.NotNil(t, record.QRImagePath)
	assert.Equal(t, "https://assets.example.org/dashboard/A-100", record.CanonicalURL)
	assert.Contains(t, storage.saved, *record.QRImagePath)

	payload := qr.Payload{AssetID: record.AssetID, AssetURL: record.CanonicalURL}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"assetId":"A-100"`)
}

func TestAttachPreservesBoundCanonicalURL(t *testing.T) {
	svc := newQRService(&stubQRStore{}, &stubQRStorage{}, QRServiceConfig{})

	record := baseRecord()
	record.CanonicalURL = "https://custom.example.org/a/1"
	require.NoError(t, svc.Attach(record, "", false))
	assert.Equal(t, "https://custom.example.org/a/1", record.CanonicalURL,
		"re-rendering without an override keeps the bound url")

	require.NoError(t, svc.Attach(record, "https://other.example.org/x", false))
	assert.Equal(t, "https://other.example.org/x", record.CanonicalURL,
		"an explicit override still wins")
}

func TestMaterializePersistsBinding(t *testing.T) {
	store := &stubQRStore{records: map[string]*models.AssetRecord{"rec-1": baseRecord()}}
	svc := newQRService(store, &stubQRStorage{}, QRServiceConfig{})

	record, err := svc.Materialize(context.Background(), "rec-1", dto.MaterializeQRRequest{}, testActor())
	require.NoError(t, err)
	assert.Equal(t, 1, store.setCalls)
	require.NotNil(t, store.boundPath)
	assert.Equal(t, record.CanonicalURL, store.boundURL)
}

func TestMaterializeUnknownRecord(t *testing.T) {
	svc := newQRService(&stubQRStore{records: map[string]*models.AssetRecord{}}, &stubQRStorage{}, QRServiceConfig{})

	_, err := svc.Materialize(context.Background(), "missing", dto.MaterializeQRRequest{}, testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestDisableClearsBinding(t *testing.T) {
	record := baseRecord()
	path := "qr_asset_rec-1.png"
	record.GenerateQR = true
	record.QRImagePath = &path
	store := &stubQRStore{records: map[string]*models.AssetRecord{"rec-1": record}}
	storage := &stubQRStorage{}
	svc := newQRService(store, storage, QRServiceConfig{})

	cleared, err := svc.Disable(context.Background(), "rec-1", testActor())
	require.NoError(t, err)
	assert.False(t, cleared.GenerateQR)
	assert.Nil(t, cleared.QRImagePath)
	assert.Nil(t, store.boundPath)
	assert.Equal(t, []string{path}, storage.deleted)
}
