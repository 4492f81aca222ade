package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type assetStore interface {
	Create(ctx context.Context, record *models.AssetRecord) error
	GetByID(ctx context.Context, recordID string) (*models.AssetRecord, error)
	List(ctx context.Context, filter models.AssetFilter) ([]models.AssetRecord, int, error)
	Update(ctx context.Context, record *models.AssetRecord, event *models.StatusChangeEvent, expectedVersion int64) error
}

type reportLedger interface {
	CountByAsset(ctx context.Context) (map[string]int, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type qrBinder interface {
	Attach(record *models.AssetRecord, urlOverride string, acceptOversize bool) error
	Detach(record *models.AssetRecord) (stalePath *string)
	RemoveArtifact(recordID string, path *string)
}

// AssetService owns the live asset store and the status transition rules.
// Every status change flows through ApplyEdit; history entries are appended
// in the same write that lands the new field values.
type AssetService struct {
	repo    assetStore
	reports reportLedger
	qr      qrBinder
	audit   auditLogger
	cache   cacheInvalidator
	logger  *zap.Logger
}

// NewAssetService constructs the service.
func NewAssetService(repo assetStore, reports reportLedger, qr qrBinder, audit auditLogger, cache cacheInvalidator, logger *zap.Logger) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{
		repo:    repo,
		reports: reports,
		qr:      qr,
		audit:   audit,
		cache:   cache,
		logger:  logger,
	}
}

// Create registers a new asset. The record starts with an empty history; the
// initial status is not an event.
func (s *AssetService) Create(ctx context.Context, req dto.CreateAssetRequest, actor *models.JWTClaims) (*models.AssetRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	fields, err := validateAssetFields(req.AssetID, req.AssetName, req.Category, req.SubType, req.OperationalPeriod, req.Status, req.PurchaseDate, req.RenewalDate)
	if err != nil {
		return nil, err
	}

	record := &models.AssetRecord{
		AssetID:           fields.assetID,
		AssetName:         fields.assetName,
		Category:          fields.category,
		SubType:           fields.subType,
		SerialNo:          strings.TrimSpace(req.SerialNo),
		OperationalPeriod: fields.period,
		Status:            fields.status,
		AssignedPersonnel: optionalString(req.AssignedPersonnel),
		PurchaseDate:      fields.purchaseDate,
		RenewalDate:       fields.renewalDate,
		History:           models.StatusHistory{},
		CreatedBy:         actor.UserID,
		UpdatedBy:         actor.UserID,
	}

	if req.GenerateQR && s.qr != nil {
		if err := s.qr.Attach(record, "", req.AcceptOversizeQR); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create asset")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditAssetCreate,
		Resource:   "asset",
		ResourceID: &record.RecordID,
		Detail:     fmt.Sprintf("created %s (%s)", record.AssetName, record.AssetID),
	})
	s.invalidateDashboards(ctx)
	return record, nil
}

// ApplyEdit rewrites a record's fields and, when the status changes, appends
// exactly one history event. A status change requires a reason; leaving
// Under Maintenance for Functional additionally requires the maintainer's
// name. Validation failures and QR failures abort before any write, so the
// store never sees a half-applied edit. When req.Version is non-zero the
// write lands only if no concurrent edit got there first.
func (s *AssetService) ApplyEdit(ctx context.Context, recordID string, req dto.EditAssetRequest, actor *models.JWTClaims) (*models.AssetRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	existing, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}

	fields, err := validateAssetFields(req.AssetID, req.AssetName, req.Category, req.SubType, req.OperationalPeriod, req.Status, req.PurchaseDate, req.RenewalDate)
	if err != nil {
		return nil, err
	}

	var event *models.StatusChangeEvent
	if fields.status != existing.Status {
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required when changing status")
		}
		maintainedBy := ""
		if existing.Status == models.StatusUnderMaintenance && fields.status == models.StatusFunctional {
			maintainedBy = strings.TrimSpace(req.MaintainedBy)
			if maintainedBy == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "maintainedBy is required when returning an asset to service")
			}
		}
		event = &models.StatusChangeEvent{
			Timestamp:    time.Now().UTC(),
			ChangedBy:    actorName(actor),
			From:         existing.Status,
			To:           fields.status,
			Reason:       reason,
			MaintainedBy: maintainedBy,
		}
	}

	updated := *existing
	updated.AssetID = fields.assetID
	updated.AssetName = fields.assetName
	updated.Category = fields.category
	updated.SubType = fields.subType
	updated.SerialNo = strings.TrimSpace(req.SerialNo)
	updated.OperationalPeriod = fields.period
	updated.Status = fields.status
	updated.AssignedPersonnel = optionalString(req.AssignedPersonnel)
	updated.PurchaseDate = fields.purchaseDate
	updated.RenewalDate = fields.renewalDate
	updated.UpdatedBy = actor.UserID

	// A detached image is deleted only after the update lands; a version
	// conflict must leave the still-live record's file in place.
	var staleQRPath *string
	if s.qr != nil {
		if req.GenerateQR {
			if err := s.qr.Attach(&updated, "", req.AcceptOversizeQR); err != nil {
				return nil, err
			}
		} else {
			staleQRPath = s.qr.Detach(&updated)
		}
	}

	if err := s.repo.Update(ctx, &updated, event, req.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if req.Version > 0 {
				return nil, appErrors.ErrVersionMismatch
			}
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update asset")
	}
	if s.qr != nil && staleQRPath != nil {
		s.qr.RemoveArtifact(updated.RecordID, staleQRPath)
	}
	updated.Version = existing.Version + 1
	if event != nil {
		updated.History = append(existing.History, *event)
	}

	detail := fmt.Sprintf("edited %s (%s)", updated.AssetName, updated.AssetID)
	if event != nil {
		detail = fmt.Sprintf("%s, status %s -> %s", detail, event.From, event.To)
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditAssetEdit,
		Resource:   "asset",
		ResourceID: &updated.RecordID,
		Detail:     detail,
	})
	s.invalidateDashboards(ctx)
	return &updated, nil
}

// Get returns one live record.
func (s *AssetService) Get(ctx context.Context, recordID string) (*models.AssetRecord, error) {
	return s.load(ctx, recordID)
}

// List returns a page of records annotated with their report-ledger summary
// and expiry badge.
func (s *AssetService) List(ctx context.Context, query dto.ListAssetsQuery) ([]dto.AnnotatedAsset, models.Pagination, error) {
	filter := models.AssetFilter{
		Category:          query.Category,
		SubType:           query.SubType,
		Status:            models.AssetStatus(query.Status),
		AssignedPersonnel: query.AssignedPersonnel,
		Search:            strings.TrimSpace(query.Search),
		Page:              query.Page,
		PageSize:          query.PageSize,
		SortBy:            query.SortBy,
		SortOrder:         query.SortOrder,
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list assets")
	}

	counts := map[string]int{}
	if s.reports != nil {
		counts, err = s.reports.CountByAsset(ctx)
		if err != nil {
			return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report counts")
		}
	}

	annotated := AnnotateWithReports(records, counts, time.Now().UTC())
	return annotated, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *AssetService) load(ctx context.Context, recordID string) (*models.AssetRecord, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load asset")
	}
	return record, nil
}

// mapStoreError normalises repository failures: missing rows become NotFound,
// anything else is a store-layer fault.
func mapStoreError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
}

func (s *AssetService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create asset audit entry", zap.Error(err))
	}
}

func (s *AssetService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

type assetFields struct {
	assetID      string
	assetName    string
	category     string
	subType      string
	period       models.OperationalPeriod
	status       models.AssetStatus
	purchaseDate *time.Time
	renewalDate  *time.Time
}

func validateAssetFields(assetID, assetName, category, subType, period, status, purchaseDate, renewalDate string) (*assetFields, error) {
	fields := &assetFields{
		assetID:   strings.TrimSpace(assetID),
		assetName: strings.TrimSpace(assetName),
		category:  strings.TrimSpace(category),
		subType:   strings.TrimSpace(subType),
		period:    models.OperationalPeriod(period),
		status:    models.AssetStatus(status),
	}
	if fields.assetID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asset id is required")
	}
	if fields.assetName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asset name is required")
	}
	if fields.category == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category is required")
	}
	if !models.ValidSubType(fields.category, fields.subType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid sub-type %q for category %q", fields.subType, fields.category))
	}
	if !fields.period.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid operational period %q", period))
	}
	if !fields.status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", status))
	}
	var err error
	if fields.purchaseDate, err = dto.ParseDate(purchaseDate); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "purchase date must be YYYY-MM-DD")
	}
	if fields.renewalDate, err = dto.ParseDate(renewalDate); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "renewal date must be YYYY-MM-DD")
	}
	return fields, nil
}

func optionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actorName(actor *models.JWTClaims) string {
	if actor == nil {
		return "system"
	}
	if actor.FullName != "" {
		return actor.FullName
	}
	return actor.Email
}
