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

type userService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
	Approve(ctx context.Context, userID string, actor *models.JWTClaims) (*models.User, error)
	Reject(ctx context.Context, userID, reason string, actor *models.JWTClaims) (*models.User, error)
	List(ctx context.Context, query dto.ListUsersQuery) ([]models.User, models.Pagination, error)
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest, actor *models.JWTClaims) (*models.User, error)
}

// UserHandler manages account endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs the handler.
func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

// Register godoc
// @Summary Open a pending account awaiting approval
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Account details"
// @Success 201 {object} response.Envelope
// @Router /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email, password and full name are required"))
		return
	}
	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, user, nil)
}

// List godoc
// @Summary List accounts
// @Tags Users
// @Produce json
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	users, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, &pagination)
}

// Me godoc
// @Summary Fetch the caller's own account
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateProfile godoc
// @Summary Edit the caller's own account details
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile changes"
// @Success 200 {object} response.Envelope
// @Router /users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid profile payload"))
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Approve godoc
// @Summary Activate a pending account
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/approve [post]
func (h *UserHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Reject godoc
// @Summary Decline a pending account
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/reject [post]
func (h *UserHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required"))
		return
	}
	user, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
