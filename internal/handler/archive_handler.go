package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/response"
)

type archiveService interface {
	ListArchived(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchivedAssetRecord, models.Pagination, error)
	GetArchived(ctx context.Context, id string) (*models.ArchivedAssetRecord, error)
	PurgeArchived(ctx context.Context, id string, actor *models.JWTClaims) error
}

// ArchiveHandler exposes the deleted-assets view.
type ArchiveHandler struct {
	service archiveService
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(service archiveService) *ArchiveHandler {
	return &ArchiveHandler{service: service}
}

// List godoc
// @Summary List archived asset snapshots
// @Tags Archive
// @Produce json
// @Param category query string false "Category filter"
// @Param search query string false "Free-text search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /archive [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.ArchiveFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PageSize: pageSize,
	}
	snapshots, pagination, err := h.service.ListArchived(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, &pagination)
}

// Get godoc
// @Summary Get one archived snapshot
// @Tags Archive
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Router /archive/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	snapshot, err := h.service.GetArchived(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Purge godoc
// @Summary Permanently remove an archived snapshot
// @Tags Archive
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 204
// @Router /archive/{id} [delete]
func (h *ArchiveHandler) Purge(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.PurgeArchived(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
