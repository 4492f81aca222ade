package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/qr"
)

type qrAssetStore interface {
	GetByID(ctx context.Context, recordID string) (*models.AssetRecord, error)
	SetQRArtifact(ctx context.Context, recordID string, path *string, canonicalURL string) error
}

type qrFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// QRServiceConfig holds the public origin embedded in canonical URLs and the
// artifact size guard thresholds.
type QRServiceConfig struct {
	PublicOrigin   string
	WarnSizeBytes  int64
	AbortSizeBytes int64
}

// QRService renders QR artifacts and binds them to asset records. Rendered
// images above AbortSizeBytes are always rejected; images above WarnSizeBytes
// are rejected unless the caller explicitly accepted the oversize artifact.
type QRService struct {
	repo    qrAssetStore
	storage qrFileStorage
	encoder *qr.Encoder
	audit   auditLogger
	logger  *zap.Logger
	cfg     QRServiceConfig
}

// NewQRService constructs the service with guard defaults.
func NewQRService(repo qrAssetStore, storage qrFileStorage, encoder *qr.Encoder, audit auditLogger, logger *zap.Logger, cfg QRServiceConfig) *QRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if encoder == nil {
		encoder = qr.NewEncoder(0)
	}
	if cfg.WarnSizeBytes <= 0 {
		cfg.WarnSizeBytes = 700 * 1024
	}
	if cfg.AbortSizeBytes <= 0 {
		cfg.AbortSizeBytes = 950 * 1024
	}
	return &QRService{
		repo:    repo,
		storage: storage,
		encoder: encoder,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
	}
}

// CanonicalURL resolves the URL embedded in a record's QR payload. An explicit
// override wins; otherwise the URL is derived from the configured public
// origin and the user-facing asset id.
func (s *QRService) CanonicalURL(assetID, override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed
	}
	origin := strings.TrimRight(s.cfg.PublicOrigin, "/")
	return fmt.Sprintf("%s/dashboard/%s", origin, url.PathEscape(assetID))
}

// Render produces the PNG artifact and applies the size guard.
func (s *QRService) Render(assetID, canonicalURL string, acceptOversize bool) ([]byte, error) {
	png, err := s.encoder.Encode(qr.Payload{AssetID: assetID, AssetURL: canonicalURL})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr image")
	}
	size := int64(len(png))
	if size > s.cfg.AbortSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrQRSizeExceeded,
			fmt.Sprintf("qr image is %d bytes, above the %d byte ceiling", size, s.cfg.AbortSizeBytes))
	}
	if size > s.cfg.WarnSizeBytes && !acceptOversize {
		return nil, appErrors.Clone(appErrors.ErrQRSizeConfirm,
			fmt.Sprintf("qr image is %d bytes, above the %d byte threshold", size, s.cfg.WarnSizeBytes))
	}
	return png, nil
}

// Attach renders, stores and binds the artifact onto the in-memory record.
// It never writes the record itself; callers include the binding in their own
// store write so the image and the record land together or not at all.
// A canonical URL already bound to the record stays as it is unless the caller
// passes an explicit override; printed labels keep matching the stored record.
func (s *QRService) Attach(record *models.AssetRecord, urlOverride string, acceptOversize bool) error {
	canonicalURL := strings.TrimSpace(urlOverride)
	if canonicalURL == "" {
		canonicalURL = record.CanonicalURL
	}
	if canonicalURL == "" {
		canonicalURL = s.CanonicalURL(record.AssetID, "")
	}
	png, err := s.Render(record.AssetID, canonicalURL, acceptOversize)
	if err != nil {
		return err
	}
	path, err := s.storage.Save(s.filename(record.RecordID), png)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store qr image")
	}
	record.GenerateQR = true
	record.QRImagePath = &path
	record.CanonicalURL = canonicalURL
	return nil
}

// Detach clears the binding on the in-memory record and returns the path of
// the now-stale image. The file itself is untouched; callers pass the path to
// RemoveArtifact once their store write has landed, so a failed write never
// leaves a live record pointing at a deleted file.
func (s *QRService) Detach(record *models.AssetRecord) (stalePath *string) {
	stalePath = record.QRImagePath
	record.GenerateQR = false
	record.QRImagePath = nil
	return stalePath
}

// RemoveArtifact deletes a stored image best-effort; a stale file never fails
// the operation that orphaned it.
func (s *QRService) RemoveArtifact(recordID string, path *string) {
	if path == nil {
		return
	}
	if err := s.storage.Delete(*path); err != nil {
		s.logger.Warn("failed to remove qr image", zap.String("record_id", recordID), zap.Error(err))
	}
}

// Materialize renders and binds an artifact for an existing record in one
// operation, persisting the binding immediately.
func (s *QRService) Materialize(ctx context.Context, recordID string, req dto.MaterializeQRRequest, actor *models.JWTClaims) (*models.AssetRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load asset")
	}
	if err := s.Attach(record, req.URLOverride, req.AcceptOversizeQR); err != nil {
		return nil, err
	}
	if err := s.repo.SetQRArtifact(ctx, record.RecordID, record.QRImagePath, record.CanonicalURL); err != nil {
		return nil, mapStoreError(err, "failed to bind qr artifact")
	}
	s.emitAudit(ctx, actor, record.RecordID, fmt.Sprintf("materialized qr for %s", record.AssetID))
	return record, nil
}

// Disable clears a record's QR binding and persists the cleared state.
func (s *QRService) Disable(ctx context.Context, recordID string, actor *models.JWTClaims) (*models.AssetRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load asset")
	}
	stalePath := s.Detach(record)
	if err := s.repo.SetQRArtifact(ctx, record.RecordID, nil, record.CanonicalURL); err != nil {
		return nil, mapStoreError(err, "failed to clear qr artifact")
	}
	s.RemoveArtifact(record.RecordID, stalePath)
	s.emitAudit(ctx, actor, record.RecordID, fmt.Sprintf("disabled qr for %s", record.AssetID))
	return record, nil
}

func (s *QRService) filename(recordID string) string {
	return fmt.Sprintf("qr_asset_%s.png", recordID)
}

func (s *QRService) emitAudit(ctx context.Context, actor *models.JWTClaims, recordID, detail string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditQRMaterialize,
		Resource:   "asset",
		ResourceID: &recordID,
		Detail:     detail,
		IPAddress:  "system",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create qr audit entry", zap.Error(err))
	}
}
