package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/middleware"
	"github.com/hcf-itd/asset-registry-api/internal/models"
)

// claimsFromContext returns the authenticated user's claims, or nil when the
// request passed through no JWT middleware or the stored value is malformed.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	if claims, ok := value.(*models.JWTClaims); ok {
		return claims
	}
	return nil
}
