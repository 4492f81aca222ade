package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type reportStore interface {
	Create(ctx context.Context, issue *models.ReportedIssue) error
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReportedIssue, int, error)
	CountByAsset(ctx context.Context) (map[string]int, error)
}

type reportAssetResolver interface {
	GetByID(ctx context.Context, recordID string) (*models.AssetRecord, error)
}

type reportFileStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ReportImage carries an optional photo attached to an issue report.
type ReportImage struct {
	Filename string
	Data     []byte
}

// ReportService maintains the issue ledger filed against live assets.
type ReportService struct {
	repo         reportStore
	assets       reportAssetResolver
	storage      reportFileStorage
	audit        auditLogger
	logger       *zap.Logger
	maxImageSize int64
}

// NewReportService constructs the service.
func NewReportService(repo reportStore, assets reportAssetResolver, storage reportFileStorage, audit auditLogger, logger *zap.Logger, maxImageSize int64) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxImageSize <= 0 {
		maxImageSize = 5 * 1024 * 1024
	}
	return &ReportService{
		repo:         repo,
		assets:       assets,
		storage:      storage,
		audit:        audit,
		logger:       logger,
		maxImageSize: maxImageSize,
	}
}

// Submit files a new issue against a live asset. The asset's name and code
// are captured into the entry so it stays readable after the asset is
// archived.
func (s *ReportService) Submit(ctx context.Context, req dto.CreateReportRequest, image *ReportImage, actor *models.JWTClaims) (*models.ReportedIssue, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	condition := models.IssueCondition(strings.TrimSpace(req.Condition))
	if !condition.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid condition %q", req.Condition))
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a description is required")
	}

	record, err := s.assets.GetByID(ctx, req.AssetRecordID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load reported asset")
	}

	issue := &models.ReportedIssue{
		AssetRecordID: record.RecordID,
		AssetID:       record.AssetID,
		AssetName:     record.AssetName,
		Condition:     condition,
		Description:   description,
		ReportedBy:    actorName(actor),
	}

	if image != nil && len(image.Data) > 0 {
		if int64(len(image.Data)) > s.maxImageSize {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("image exceeds %d bytes limit", s.maxImageSize))
		}
		path, err := s.storage.Save(s.imageFilename(record.RecordID, image.Filename), image.Data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store report image")
		}
		issue.ImagePath = &path
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create issue report")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditReportCreate,
			Resource:   "report",
			ResourceID: &issue.ID,
			Detail:     fmt.Sprintf("reported %s (%s) as %s", record.AssetName, record.AssetID, condition),
			IPAddress:  "system",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to create report audit entry", zap.Error(err))
		}
	}
	return issue, nil
}

// List returns a page of ledger entries.
func (s *ReportService) List(ctx context.Context, query dto.ListReportsQuery) ([]models.ReportedIssue, models.Pagination, error) {
	filter := models.ReportFilter{
		AssetRecordID: query.AssetRecordID,
		Condition:     models.IssueCondition(query.Condition),
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	issues, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list issue reports")
	}
	return issues, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// CountByAsset exposes the ledger tallies for joins.
func (s *ReportService) CountByAsset(ctx context.Context) (map[string]int, error) {
	counts, err := s.repo.CountByAsset(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report counts")
	}
	return counts, nil
}

func (s *ReportService) imageFilename(recordID, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("report_%s_%d%s", recordID, time.Now().UnixNano(), ext)
}

// AnnotateWithReports joins live records with their ledger tallies and expiry
// classification. The join is read-only on both sides: input records are
// copied into the result and the tallies map is never modified. Records with
// no ledger entries annotate with a zero count.
func AnnotateWithReports(records []models.AssetRecord, counts map[string]int, now time.Time) []dto.AnnotatedAsset {
	annotated := make([]dto.AnnotatedAsset, 0, len(records))
	for _, record := range records {
		count := counts[record.RecordID]
		annotated = append(annotated, dto.AnnotatedAsset{
			AssetRecord:    record,
			ReportCount:    count,
			HasOpenReports: count > 0,
			Expiry:         ClassifyExpiry(record.OperationalPeriod, record.RenewalDate, now),
		})
	}
	return annotated
}
