package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
	"github.com/hcf-itd/asset-registry-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest, ipAddress string) (*models.LoginResponse, error)
	Refresh(ctx context.Context, rawToken string) (*models.LoginResponse, error)
	Logout(ctx context.Context, actor *models.JWTClaims, ipAddress string) error
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest, actor *models.JWTClaims) error
}

// AuthHandler manages authentication endpoints.
type AuthHandler struct {
	service authService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login godoc
// @Summary Authenticate and receive a token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email and password are required"))
		return
	}
	resp, err := h.service.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Refresh godoc
// @Summary Exchange a refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "refresh token is required"))
		return
	}
	resp, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Logout godoc
// @Summary Revoke all refresh tokens of the caller
// @Tags Auth
// @Produce json
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(c.Request.Context(), claims, c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Rotate the caller's password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Passwords"
// @Success 204
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "current and new passwords are required"))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), req, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
