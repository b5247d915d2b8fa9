package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/zaiko-kanri/zaiko/internal/app"
	"github.com/zaiko-kanri/zaiko/internal/backend"
	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/platform/cache"
	"github.com/zaiko-kanri/zaiko/internal/sales"
	"github.com/zaiko-kanri/zaiko/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	jobClient := jobs.NewClient(cache.QueueOpt(cfg.RedisAddr), logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	salesService := sales.NewService(sales.ServiceParams{
		API:         backend.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger),
		Cache:       sales.NewSummaryCache(redisClient, cfg.SummaryCacheTTL),
		Warmup:      jobClient,
		Staging:     sales.NewFileStaging(redisClient, cfg.ImportStagingTTL),
		Metrics:     metrics,
		Logger:      logger,
		LoadTimeout: cfg.APITimeout,
	})
	warmupJob := jobs.NewSummaryWarmupJob(salesService, logger, metrics)
	importJob := jobs.NewSalesImportJob(salesService, logger, metrics)

	nightlyTask, err := jobs.NewSummaryWarmupTask(0, "scheduled")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cache.QueueOpt(cfg.RedisAddr),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSummaryWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskSalesImport, Handler: importJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: nightlyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
