package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	"github.com/hcf-itd/asset-registry-api/internal/service"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/response"
)

type reportService interface {
	Submit(ctx context.Context, req dto.CreateReportRequest, image *service.ReportImage, actor *models.JWTClaims) (*models.ReportedIssue, error)
	List(ctx context.Context, query dto.ListReportsQuery) ([]models.ReportedIssue, models.Pagination, error)
}

// ReportHandler manages the issue ledger endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Create godoc
// @Summary File an issue report against an asset
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param assetRecordId formData string true "Record ID"
// @Param condition formData string true "Condition"
// @Param description formData string true "Description"
// @Param image formData file false "Photo"
// @Success 201 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report payload"))
		return
	}

	var image *service.ReportImage
	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		src, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open image"))
			return
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read image"))
			return
		}
		image = &service.ReportImage{Filename: fileHeader.Filename, Data: data}
	}

	issue, err := h.service.Submit(c.Request.Context(), req, image, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, issue, nil)
}

// List godoc
// @Summary List issue reports
// @Tags Reports
// @Produce json
// @Param asset_record_id query string false "Record filter"
// @Param condition query string false "Condition filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	var query dto.ListReportsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid listing query"))
		return
	}
	issues, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, &pagination)
}
