package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zaiko-kanri/zaiko/internal/app"
	"github.com/zaiko-kanri/zaiko/internal/backend"
	"github.com/zaiko-kanri/zaiko/internal/inventory"
	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/platform/cache"
	"github.com/zaiko-kanri/zaiko/internal/sales"
	"github.com/zaiko-kanri/zaiko/internal/shared"
	"github.com/zaiko-kanri/zaiko/internal/view"
	"github.com/zaiko-kanri/zaiko/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "zaiko_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	apiClient := backend.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger)

	jobClient := jobs.NewClient(cache.QueueOpt(cfg.RedisAddr), logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	salesService := sales.NewService(sales.ServiceParams{
		API:         apiClient,
		Cache:       sales.NewSummaryCache(redisClient, cfg.SummaryCacheTTL),
		Warmup:      jobClient,
		Staging:     sales.NewFileStaging(redisClient, cfg.ImportStagingTTL),
		Imports:     jobClient,
		Metrics:     metrics,
		Logger:      logger,
		LoadTimeout: cfg.APITimeout,
	})

	var catalog inventory.Catalog = apiClient
	var products app.ProductLister = apiClient
	if cfg.CatalogSource == app.CatalogSample {
		store, err := inventory.NewSampleStore()
		if err != nil {
			logger.Error("load sample catalog", slog.Any("error", err))
			os.Exit(1)
		}
		catalog = store
		products = store
	}
	logger.Info("catalog selected", slog.String("source", cfg.CatalogSource))
	inventoryService := inventory.NewService(catalog, salesService, logger)

	inspector := asynq.NewInspector(cache.QueueOpt(cfg.RedisAddr))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		SalesHandler:     sales.NewHandler(logger, salesService, templates, csrfManager),
		InventoryHandler: inventory.NewHandler(logger, inventoryService, templates, csrfManager, metrics),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Products:         products,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
