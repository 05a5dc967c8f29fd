package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/repo"
	"github.com/rentora/authcore/internal/tokens"
)

// Context keys set by RequireAccess for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

type Auth struct {
	Issuer *tokens.Issuer
	Repo   *repo.Repo
}

func NewAuth(issuer *tokens.Issuer, r *repo.Repo) *Auth {
	return &Auth{Issuer: issuer, Repo: r}
}

// RequireAccess guards a route with a bearer access token. Access tokens are
// stateless: only signature and expiry are verified here.
func (m *Auth) RequireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := BearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Issuer.ParseAccess(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		id, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid identity in token")
		}

		c.Set(CtxUserID, uint(id))
		c.Set(CtxRole, claims.Role)
		c.Set(CtxEmail, claims.Email)
		return next(c)
	}
}

// RolesRequired allows only identities whose current role, re-fetched from
// storage rather than trusted from claims, is in the given set.
func (m *Auth) RolesRequired(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserID).(uint)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			ctx := c.Request().Context()
			current, err := m.Repo.RoleNameOfUser(ctx, userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
			}
			for _, role := range roles {
				if current == role {
					c.Set(CtxRole, current)
					return next(c)
				}
			}

			logging.FromContext(ctx).Warn("role check failed",
				"user_id", userID, "role", current, "required", roles)
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}
}

func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
