package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/export"
	"github.com/hcf-itd/asset-registry-api/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	UpdateStatus(ctx context.Context, id, status string, filePath, errMsg *string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error)
}

type exportAssetLister interface {
	ListAll(ctx context.Context) ([]models.AssetRecord, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportURLSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

// ExportServiceConfig tunes the rendering worker pool and artifact retention.
type ExportServiceConfig struct {
	APIPrefix       string
	Workers         int
	MaxRetries      int
	CleanupInterval time.Duration
	ArtifactTTL     time.Duration
}

// ExportService renders full inventory listings to CSV or PDF on a background
// worker pool. Lifecycle operations never go through this queue; it only
// produces read-only artifacts.
type ExportService struct {
	repo    exportJobStore
	assets  exportAssetLister
	storage exportFileStorage
	signer  exportURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	audit   auditLogger
	logger  *zap.Logger
	cfg     ExportServiceConfig
	queue   *jobs.Queue
}

type exportPayload struct {
	JobID  string
	Format string
	Title  string
}

// NewExportService constructs the service and its rendering queue. Call
// Start before accepting requests and Stop on shutdown.
func NewExportService(repo exportJobStore, assets exportAssetLister, storage exportFileStorage, signer exportURLSigner, audit auditLogger, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = 7 * 24 * time.Hour
	}
	s := &ExportService{
		repo:    repo,
		assets:  assets,
		storage: storage,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the rendering workers and, when a cleanup interval is
// configured, a janitor that drops artifacts past their retention TTL.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval > 0 {
		go s.janitor(ctx)
	}
}

func (s *ExportService) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.storage.CleanupOlderThan(s.cfg.ArtifactTTL)
			if err != nil {
				s.logger.Warn("export artifact cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("removed expired export artifacts", zap.Int("count", len(deleted)))
			}
		}
	}
}

// Stop drains the rendering workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Request queues a new export and returns the pending job.
func (s *ExportService) Request(ctx context.Context, req dto.CreateExportRequest, actor *models.JWTClaims) (*models.ExportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", req.Format))
	}
	job := &models.ExportJob{
		Format:      format,
		Status:      models.ExportPending,
		RequestedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create export job")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Asset Inventory"
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    "export:" + format,
		Payload: exportPayload{JobID: job.ID, Format: format, Title: title},
	}); err != nil {
		msg := "export queue unavailable"
		_ = s.repo.UpdateStatus(ctx, job.ID, models.ExportFailed, nil, &msg)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditExportRequest,
			Resource:   "export",
			ResourceID: &job.ID,
			Detail:     fmt.Sprintf("requested %s export", format),
			IPAddress:  "system",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to create export audit entry", zap.Error(err))
		}
	}
	return job, nil
}

// Get returns a job with its signed download link when complete. Only the
// requester may see their jobs.
func (s *ExportService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExportJobResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load export job")
	}
	if job.RequestedBy != actor.UserID && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ExportJobResponse{ExportJob: *job}
	if job.Status == models.ExportCompleted && job.FilePath != nil && s.signer != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign export url", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			base := strings.TrimRight(s.cfg.APIPrefix, "/")
			resp.DownloadURL = fmt.Sprintf("%s/exports/%s/download?token=%s", base, job.ID, token)
		}
	}
	return resp, nil
}

// ListMine returns the requester's recent jobs.
func (s *ExportService) ListMine(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.ExportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	jobsList, err := s.repo.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list export jobs")
	}
	return jobsList, nil
}

// ResolveDownload validates a signed token and returns the artifact path.
func (s *ExportService) ResolveDownload(ctx context.Context, id, token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", mapStoreError(err, "failed to load export job")
	}
	if job.Status != models.ExportCompleted || job.FilePath == nil {
		return "", appErrors.ErrNotFound
	}
	exportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if exportID != job.ID || relPath != *job.FilePath {
		return "", appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	return s.storage.Path(relPath), nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if err := s.repo.UpdateStatus(ctx, payload.JobID, models.ExportProcessing, nil, nil); err != nil {
		return err
	}

	records, err := s.assets.ListAll(ctx)
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("list assets: %w", err))
	}
	dataset := buildInventoryDataset(records)

	var rendered []byte
	switch payload.Format {
	case models.ExportFormatCSV:
		rendered, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		rendered, err = s.pdf.Render(dataset, payload.Title)
	default:
		err = fmt.Errorf("unsupported format %q", payload.Format)
	}
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("render export: %w", err))
	}

	filename := fmt.Sprintf("inventory_%s_%d.%s", payload.JobID, time.Now().Unix(), payload.Format)
	path, err := s.storage.Save(filename, rendered)
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("store export: %w", err))
	}
	return s.repo.UpdateStatus(ctx, payload.JobID, models.ExportCompleted, &path, nil)
}

func (s *ExportService) fail(ctx context.Context, jobID string, cause error) error {
	msg := cause.Error()
	if err := s.repo.UpdateStatus(ctx, jobID, models.ExportFailed, nil, &msg); err != nil {
		s.logger.Warn("failed to mark export job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	return cause
}

func buildInventoryDataset(records []models.AssetRecord) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Asset ID", "Name", "Category", "Sub-Type", "Serial No", "Period", "Status", "Assigned To", "Renewal Date"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, r := range records {
		assigned := ""
		if r.AssignedPersonnel != nil {
			assigned = *r.AssignedPersonnel
		}
		renewal := ""
		if r.RenewalDate != nil {
			renewal = r.RenewalDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, []string{
			r.AssetID, r.AssetName, r.Category, r.SubType, r.SerialNo,
			string(r.OperationalPeriod), string(r.Status), assigned, renewal,
		})
	}
	return dataset
}
