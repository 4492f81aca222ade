package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type deletionAssetStore interface {
	GetByID(ctx context.Context, recordID string) (*models.AssetRecord, error)
	Delete(ctx context.Context, recordID string) error
}

type archiveStore interface {
	Create(ctx context.Context, snapshot *models.ArchivedAssetRecord) error
	GetByID(ctx context.Context, id string) (*models.ArchivedAssetRecord, error)
	List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchivedAssetRecord, int, error)
	Purge(ctx context.Context, id string) error
}

type identityResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type artifactRemover interface {
	Delete(filename string) error
}

// DeletionService removes live assets through the archive-first path. The
// snapshot write and the live delete are two independent statements against
// two stores; a failure between them leaves the snapshot in place and the
// outcome is reported rather than rolled back.
type DeletionService struct {
	assets  deletionAssetStore
	archive archiveStore
	users   identityResolver
	files   artifactRemover
	audit   auditLogger
	cache   cacheInvalidator
	logger  *zap.Logger
}

// NewDeletionService constructs the service.
func NewDeletionService(assets deletionAssetStore, archive archiveStore, users identityResolver, files artifactRemover, audit auditLogger, cache cacheInvalidator, logger *zap.Logger) *DeletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionService{
		assets:  assets,
		archive: archive,
		users:   users,
		files:   files,
		audit:   audit,
		cache:   cache,
		logger:  logger,
	}
}

// DeleteAsset archives the record, then removes it from the live store. The
// live record is never touched before the snapshot has landed. When the
// snapshot write fails the record stays fully live. When the snapshot lands
// but the removal fails, both copies exist and the error demands manual
// reconciliation; re-running the delete is safe because the second run fails
// on the already-missing live record before writing another snapshot.
func (s *DeletionService) DeleteAsset(ctx context.Context, recordID, reason string, actor *models.JWTClaims) (*models.ArchivedAssetRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a deletion reason is required")
	}

	record, err := s.assets.GetByID(ctx, recordID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load asset")
	}

	deletedBy, deletedByEmail := s.resolveIdentity(ctx, actor)
	snapshot := snapshotFromRecord(record, deletedBy, deletedByEmail, reason)

	if err := s.archive.Create(ctx, snapshot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrArchivalFailed.Code, appErrors.ErrArchivalFailed.Status, appErrors.ErrArchivalFailed.Message)
	}

	if err := s.assets.Delete(ctx, record.RecordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another session removed the live record between our read and
			// this delete. The end state matches a completed deletion.
			s.logger.Warn("live record already gone during deletion",
				zap.String("record_id", record.RecordID), zap.String("snapshot_id", snapshot.ID))
		} else {
			s.logger.Error("live record removal failed after archival",
				zap.String("record_id", record.RecordID),
				zap.String("snapshot_id", snapshot.ID),
				zap.Error(err))
			return snapshot, appErrors.Wrap(err, appErrors.ErrPartialDeletion.Code, appErrors.ErrPartialDeletion.Status, appErrors.ErrPartialDeletion.Message)
		}
	}

	// The PNG serves no one once the live record is gone; the snapshot keeps
	// the path for the trail. A failed file delete never fails the deletion.
	if s.files != nil && record.QRImagePath != nil {
		if err := s.files.Delete(*record.QRImagePath); err != nil {
			s.logger.Warn("failed to remove qr image after deletion",
				zap.String("record_id", record.RecordID), zap.Error(err))
		}
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditAssetDelete,
		Resource:   "asset",
		ResourceID: &record.RecordID,
		Detail:     fmt.Sprintf("archived and removed %s (%s): %s", record.AssetName, record.AssetID, reason),
	})
	s.invalidateDashboards(ctx)
	return snapshot, nil
}

// ListArchived returns a page of snapshots.
func (s *DeletionService) ListArchived(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchivedAssetRecord, models.Pagination, error) {
	snapshots, total, err := s.archive.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list archived assets")
	}
	return snapshots, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// GetArchived returns one snapshot.
func (s *DeletionService) GetArchived(ctx context.Context, id string) (*models.ArchivedAssetRecord, error) {
	snapshot, err := s.archive.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load archived asset")
	}
	return snapshot, nil
}

// PurgeArchived removes a snapshot permanently. No further snapshot is taken;
// the archive is the end of the line.
func (s *DeletionService) PurgeArchived(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.archive.Purge(ctx, id); err != nil {
		return mapStoreError(err, "failed to purge archived asset")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditArchivePurge,
		Resource:   "archive",
		ResourceID: &id,
	})
	return nil
}

func (s *DeletionService) resolveIdentity(ctx context.Context, actor *models.JWTClaims) (name, email string) {
	name = actorName(actor)
	email = actor.Email
	if s.users == nil {
		return name, email
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve deleting user, falling back to token claims",
			zap.String("user_id", actor.UserID), zap.Error(err))
		return name, email
	}
	return user.DisplayName(), user.Email
}

// snapshotFromRecord copies every field of the live record into the archive
// document. Nothing is dropped; the QR binding, image path and update trail
// remain reconstructable after the live record is gone.
func snapshotFromRecord(record *models.AssetRecord, deletedBy, deletedByEmail, reason string) *models.ArchivedAssetRecord {
	history := make(models.StatusHistory, len(record.History))
	copy(history, record.History)
	return &models.ArchivedAssetRecord{
		OriginalRecordID:  record.RecordID,
		AssetID:           record.AssetID,
		AssetName:         record.AssetName,
		Category:          record.Category,
		SubType:           record.SubType,
		SerialNo:          record.SerialNo,
		OperationalPeriod: record.OperationalPeriod,
		Status:            record.Status,
		AssignedPersonnel: record.AssignedPersonnel,
		PurchaseDate:      record.PurchaseDate,
		RenewalDate:       record.RenewalDate,
		GenerateQR:        record.GenerateQR,
		QRImagePath:       record.QRImagePath,
		CanonicalURL:      record.CanonicalURL,
		ImagePath:         record.ImagePath,
		History:           history,
		CreatedBy:         record.CreatedBy,
		CreatedAt:         record.CreatedAt,
		UpdatedBy:         record.UpdatedBy,
		UpdatedAt:         record.UpdatedAt,
		DeletedAt:         time.Now().UTC(),
		DeletedBy:         deletedBy,
		DeletedByEmail:    deletedByEmail,
		DeletionReason:    reason,
	}
}

func (s *DeletionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create deletion audit entry", zap.Error(err))
	}
}

func (s *DeletionService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
