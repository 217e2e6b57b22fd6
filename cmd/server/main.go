package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/auth"
	"github.com/parks-gardens/fieldops-api/internal/config"
	"github.com/parks-gardens/fieldops-api/internal/database"
	"github.com/parks-gardens/fieldops-api/internal/handlers"
	"github.com/parks-gardens/fieldops-api/internal/middleware"
	"github.com/parks-gardens/fieldops-api/internal/notify"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/services"
	"github.com/parks-gardens/fieldops-api/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		return err
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		return err
	}

	repos := repository.New(database.GetDB())
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	store := storage.NewFileStore(cfg.UploadDir)

	// Initialize AI service
	var aiService *services.AIService
	if cfg.AIEnabled() {
		aiService = services.NewAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, loc)
	} else {
		logger.Info("OPENAI_API_KEY not set, task drafting disabled")
	}

	hub := notify.NewHub(logger)
	defer hub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := notify.NewDispatcher(repos, hub, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:            handlers.NewAuthHandler(services.NewAuthService(repos, tokens)),
		Tasks:           handlers.NewTaskHandler(services.NewTaskService(repos, aiService, loc, cfg.AckValidity)),
		Staff:           handlers.NewStaffHandler(services.NewStaffService(repos)),
		Machinery:       handlers.NewMachineryHandler(services.NewMachineryService(repos)),
		RiskAssessments: handlers.NewDocumentHandler(services.NewRiskAssessmentService(repos, store, cfg.UploadMaxBytes)),
		SWMS:            handlers.NewDocumentHandler(services.NewSWMSService(repos, store, cfg.UploadMaxBytes)),
		Dashboard:       handlers.NewDashboardHandler(services.NewDashboardService(repos, loc)),
		Notifications:   notify.NewWSHandler(hub, tokens, logger),
	}, tokens)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "field_timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
