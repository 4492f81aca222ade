package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/response"
)

type assetService interface {
	Create(ctx context.Context, req dto.CreateAssetRequest, actor *models.JWTClaims) (*models.AssetRecord, error)
	ApplyEdit(ctx context.Context, recordID string, req dto.EditAssetRequest, actor *models.JWTClaims) (*models.AssetRecord, error)
	Get(ctx context.Context, recordID string) (*models.AssetRecord, error)
	List(ctx context.Context, query dto.ListAssetsQuery) ([]dto.AnnotatedAsset, models.Pagination, error)
}

type qrService interface {
	Materialize(ctx context.Context, recordID string, req dto.MaterializeQRRequest, actor *models.JWTClaims) (*models.AssetRecord, error)
	Disable(ctx context.Context, recordID string, actor *models.JWTClaims) (*models.AssetRecord, error)
}

type assetDeleter interface {
	DeleteAsset(ctx context.Context, recordID, reason string, actor *models.JWTClaims) (*models.ArchivedAssetRecord, error)
}

// AssetHandler manages asset HTTP endpoints.
type AssetHandler struct {
	assets  assetService
	qr      qrService
	deleter assetDeleter
}

// NewAssetHandler constructs the handler.
func NewAssetHandler(assets assetService, qr qrService, deleter assetDeleter) *AssetHandler {
	return &AssetHandler{assets: assets, qr: qr, deleter: deleter}
}

// Create godoc
// @Summary Register a new asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssetRequest true "Asset"
// @Success 201 {object} response.Envelope
// @Router /assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid asset payload"))
		return
	}
	record, err := h.assets.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}

// List godoc
// @Summary List assets with report and expiry annotations
// @Tags Assets
// @Produce json
// @Param category query string false "Category filter"
// @Param status query string false "Status filter"
// @Param search query string false "Free-text search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	var query dto.ListAssetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid listing query"))
		return
	}
	annotated, pagination, err := h.assets.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annotated, &pagination)
}

// Get godoc
// @Summary Get one asset
// @Tags Assets
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	record, err := h.assets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Update godoc
// @Summary Edit an asset, appending a history event on status change
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.EditAssetRequest true "Edit"
// @Success 200 {object} response.Envelope
// @Router /assets/{id} [put]
func (h *AssetHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EditAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	record, err := h.assets.ApplyEdit(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Archive and remove an asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id} [delete]
func (h *AssetHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deletion payload"))
		return
	}
	snapshot, err := h.deleter.DeleteAsset(c.Request.Context(), c.Param("id"), body.Reason, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// MaterializeQR godoc
// @Summary Render and bind a QR artifact
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.MaterializeQRRequest false "Options"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/qr [post]
func (h *AssetHandler) MaterializeQR(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MaterializeQRRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid qr payload"))
			return
		}
	}
	record, err := h.qr.Materialize(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// DisableQR godoc
// @Summary Clear an asset's QR binding
// @Tags Assets
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/qr [delete]
func (h *AssetHandler) DisableQR(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.qr.Disable(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
