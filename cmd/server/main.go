package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	_ "libris/docs" // swagger docs

	"libris/internal/cache"
	"libris/internal/clock"
	"libris/internal/config"
	"libris/internal/db"
	"libris/internal/handler"
	"libris/internal/repository"
	"libris/internal/router"
	"libris/internal/service"
	"libris/internal/telemetry"
)

// @title Library API
// @version 1.0
// @description Library catalog, per-copy inventory and circulation API with JWT-protected writes.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "libris")
	if err != nil {
		logger.Error("telemetry init", slog.String("error", err.Error()))
		os.Exit(1)
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database init", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		logger.Error("auto-migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, serving without cache", slog.String("error", err.Error()))
	}

	store := repository.NewStore(gormDB)
	today := clock.System{Location: cfg.Location}

	catalog := service.NewCatalogService(store, cacheClient)
	circulation := service.NewCirculationService(store, cacheClient, today, cfg.FinePerDay)
	users := service.NewUserService(store, cacheClient)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, logger, router.Handlers{
		Books:       handler.NewBookHandler(catalog),
		Copies:      handler.NewCopyHandler(catalog),
		Circulation: handler.NewCirculationHandler(circulation),
		Users:       handler.NewUserHandler(users),
	})

	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening", slog.String("addr", addr), slog.String("swagger", "/swagger/index.html"))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server start", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", slog.String("error", err.Error()))
	}
	if err := cacheClient.Close(); err != nil {
		logger.Warn("redis close", slog.String("error", err.Error()))
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
}
