package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/rentora/authcore/internal/middleware"
)

type Deps struct {
	Auth     *AuthHTTP
	Profiles *ProfileHTTP
	Audit    *AuditHTTP
	AuthMW   *middleware.Auth

	Logger             *slog.Logger
	CORSAllowedOrigins []string
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(middleware.RequestLogger(d.Logger))
	if len(d.CORSAllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     d.CORSAllowedOrigins,
			AllowCredentials: true,
		}))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/session", d.Auth.SessionInfo)
	auth.GET("/me", d.Auth.Me)
	auth.DELETE("/delete", d.Auth.Delete)

	api := e.Group("/api")
	api.Use(d.AuthMW.RequireAccess)

	api.POST("/user_profiles", d.Profiles.Create)
	api.GET("/user_profiles/:id", d.Profiles.Get)
	api.PUT("/user_profiles/:id", d.Profiles.Update)
	api.DELETE("/user_profiles/:id", d.Profiles.Delete)

	api.GET("/audit_log", d.Audit.List)
	api.GET("/audit_log/search", d.Audit.Search)
	api.GET("/audit_log/:id", d.Audit.Get)
}
