package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/response"
)

type exportService interface {
	Request(ctx context.Context, req dto.CreateExportRequest, actor *models.JWTClaims) (*models.ExportJob, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExportJobResponse, error)
	ListMine(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.ExportJob, error)
	ResolveDownload(ctx context.Context, id, token string) (string, error)
}

// ExportHandler manages inventory export jobs.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Request godoc
// @Summary Queue an inventory export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.CreateExportRequest true "Export options"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	job, err := h.service.Request(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Fetch an export job with its download link when ready
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListMine godoc
// @Summary List the caller's recent export jobs
// @Tags Exports
// @Produce json
// @Param limit query int false "Maximum jobs to return"
// @Success 200 {object} response.Envelope
// @Router /exports [get]
func (h *ExportHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.service.ListMine(c.Request.Context(), claims, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Download godoc
// @Summary Download a completed export via a signed token
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a download token is required"))
		return
	}
	path, err := h.service.ResolveDownload(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
