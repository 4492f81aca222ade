package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	"github.com/hcf-itd/asset-registry-api/internal/repository"
)

// Audit records an audit trail entry after successful requests.
func Audit(repo *repository.UserRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			user := claims.(*models.JWTClaims)
			userID = &user.UserID
		}

		detail := fmt.Sprintf("%s %s -> %d (%dms)",
			c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Milliseconds())

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:    userID,
			Action:    action,
			Resource:  resource,
			Detail:    detail,
			IPAddress: c.ClientIP(),
		})
	}
}
