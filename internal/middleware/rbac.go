package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noc-portal-api/internal/models"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
	"github.com/noah-isme/noc-portal-api/pkg/response"
)

// RequireRoles restricts a route to the given roles. The role comes from the
// verified token claims, never from anything the client sends in the body.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
