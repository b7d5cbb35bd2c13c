package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const userKey = "currentUser"

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func extractBearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// Authenticate rejects requests without a valid token with 401 and stores
// the user for the handlers. Lookup failures other than a bad token are 500.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			resp.Abort(c, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		u, err := a.Authenticate(c.Request.Context(), token)
		switch {
		case errors.Is(err, errs.ErrUnauthenticated):
			resp.Abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		case err != nil:
			slog.Error("authenticate request", "path", c.Request.URL.Path, "error", err)
			_ = c.Error(err)
			resp.Abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// RequireRoles must run after Authenticate. A role outside the set gets 403.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			resp.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		resp.Abort(c, http.StatusForbidden, "you do not have permission to perform this action")
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
