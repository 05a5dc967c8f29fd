package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/middleware"
	"github.com/rentora/authcore/internal/service"
	"github.com/rentora/authcore/internal/tokens"
)

type AuthHTTP struct {
	Svc    *service.AuthService
	Cookie tokens.CookieOptions
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	id, err := h.Svc.Register(ctx, req.Email, req.Password, req.Username, req.Role)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	userAgent := c.Request().UserAgent()
	ip := c.RealIP()

	res, err := h.Svc.Login(ctx, req.Email, req.Password, userAgent, ip)
	if err != nil {
		return serviceError(c, err)
	}

	c.SetCookie(tokens.CreateCookie(h.Cookie, res.RefreshToken, res.RefreshExp))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": res.AccessToken,
		"token_type":   "bearer",
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(h.Cookie.Name)
	if err != nil || cookie.Value == "" {
		return jsonError(c, http.StatusUnauthorized, "missing refresh token")
	}

	accessToken, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(h.Cookie.Name)
	if err != nil || cookie.Value == "" {
		return jsonError(c, http.StatusBadRequest, "missing refresh token")
	}

	err = h.Svc.Logout(ctx, cookie.Value)

	// the cookie is cleared regardless, the client must not keep retrying it
	c.SetCookie(tokens.DeleteCookie(h.Cookie))

	if errors.Is(err, service.ErrRevokeIncomplete) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "revocation incomplete",
			"revoked": false,
		})
	}
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"revoked": true})
}

func (h *AuthHTTP) SessionInfo(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(h.Cookie.Name)
	if err != nil || cookie.Value == "" {
		return jsonError(c, http.StatusUnauthorized, "missing refresh token")
	}

	identity, err := h.Svc.SessionInfo(ctx, cookie.Value)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": true,
		"user": echo.Map{
			"id":       identity.User.ID,
			"email":    identity.User.Email,
			"username": identity.User.Username,
			"role":     identity.Role,
		},
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	bearer := middleware.BearerToken(c)
	if bearer == "" {
		return jsonError(c, http.StatusUnauthorized, "missing access token")
	}

	identity, err := h.Svc.Me(ctx, bearer)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":       identity.User.ID,
		"email":    identity.User.Email,
		"username": identity.User.Username,
		"role":     identity.Role,
	})
}

func (h *AuthHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	bearer := middleware.BearerToken(c)

	if err := h.Svc.Delete(ctx, req.Email, req.Password, bearer); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "user with email " + req.Email + " deleted successfully",
	})
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// serviceError maps the service taxonomy onto HTTP statuses. Unexpected
// errors surface as a generic message, never internals.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return jsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return jsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return jsonError(c, http.StatusUnauthorized, "invalid credentials or token")
	case errors.Is(err, service.ErrForbidden):
		return jsonError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "not found")
	default:
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}
}
