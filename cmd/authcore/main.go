package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rentora/authcore/internal/authz"
	"github.com/rentora/authcore/internal/config"
	"github.com/rentora/authcore/internal/db"
	"github.com/rentora/authcore/internal/events"
	"github.com/rentora/authcore/internal/httpserver"
	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/middleware"
	"github.com/rentora/authcore/internal/repo"
	"github.com/rentora/authcore/internal/search"
	"github.com/rentora/authcore/internal/service"
	"github.com/rentora/authcore/internal/tokens"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	r := repo.New(gdb)

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	indexer, err := search.NewAuditIndexer(cfg)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}

	svc := &service.AuthService{
		Repo:                 r,
		Issuer:               issuer,
		Producer:             producer,
		Indexer:              indexer,
		StrictSessionPersist: cfg.StrictSessionPersist,
	}

	cookieOpts := tokens.CookieOptions{
		Name:     cfg.RefreshCookieName,
		Secure:   cfg.CookieSecure,
		SameSite: tokens.ParseSameSite(cfg.CookieSameSite),
	}

	engine := authz.New(r)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		Auth:               &httpserver.AuthHTTP{Svc: svc, Cookie: cookieOpts},
		Profiles:           &httpserver.ProfileHTTP{Repo: r, Authz: engine, Indexer: indexer},
		Audit:              &httpserver.AuditHTTP{Repo: r, Authz: engine, Indexer: indexer},
		AuthMW:             middleware.NewAuth(issuer, r),
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	go func() {
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
