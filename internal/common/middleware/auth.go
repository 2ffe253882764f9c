package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gtm-backend/internal/common/auth"
	"gtm-backend/internal/common/errors"
)

const claimsKey = "admin_claims"

// RequireAdmin accepts "Authorization: Bearer <jwt>" signed with the admin secret.
func RequireAdmin(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			sendErrorResponse(c, errors.NewUnauthorizedError("bearer token required"))
			return
		}

		claims, err := signer.Parse(strings.TrimSpace(token))
		if err != nil {
			sendErrorResponse(c, errors.NewUnauthorizedError("invalid token"))
			return
		}
		if claims.Role != auth.RoleAdmin {
			sendErrorResponse(c, errors.NewForbiddenError("admin role required"))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}
