package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/response"
)

// RequireRoles is a coarse route filter on the loaded account's role. The
// fine-grained checks live in the authz policies; this keeps obviously wrong
// roles away from a route group before any work is done.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		accountValue, exists := c.Get(ContextAccountKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		account := accountValue.(*models.User)

		if _, ok := allowed[account.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
