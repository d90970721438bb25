package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unidesk/uniportal-api/internal/authz"
	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/response"
)

// ContextAccountKey is the gin context key storing the freshly loaded user
// row. Handlers read the account from here rather than trusting token claims.
const ContextAccountKey = "currentAccount"

type accountLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type sessionChecker interface {
	IsRevoked(ctx context.Context, userID string) (bool, error)
}

type logoutEnforcer interface {
	ForceLogout(ctx context.Context, userID, reason string)
}

// AccountGate re-reads the user row on every authenticated request and
// enforces activation and role integrity. Token claims only say who the
// caller was at issue time; the gate decides what they are now, so a
// mid-session deactivation or role edit takes effect on the next request.
// Exempt paths (logout, the deactivation notice) stay reachable so a locked
// out user can still end their session cleanly.
func AccountGate(users accountLoader, sessions sessionChecker, enforcer logoutEnforcer, exemptPaths []string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if pathExempt(c.Request.URL.Path, exemptPaths) {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		if sessions != nil {
			revoked, err := sessions.IsRevoked(ctx, claims.UserID)
			if err != nil {
				// Redis outage fails open; the row checks below still run.
				logger.Warn("session revocation check failed", zap.Error(err))
			} else if revoked {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session has been revoked"))
				c.Abort()
				return
			}
		}

		user, err := users.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account"))
			}
			c.Abort()
			return
		}

		if !authz.IsActive(user) {
			if enforcer != nil {
				enforcer.ForceLogout(ctx, user.ID, "account deactivated")
			}
			response.Error(c, appErrors.ErrAccountDeactivated)
			c.Abort()
			return
		}

		if err := authz.ValidateAssignment(user); err != nil {
			if enforcer != nil {
				enforcer.ForceLogout(ctx, user.ID, "role misconfigured")
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAccountKey, user)
		c.Next()
	}
}

func pathExempt(path string, exempt []string) bool {
	for _, p := range exempt {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
