package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/sales"
)

// SummaryLoader reloads the monthly summary through the cache.
type SummaryLoader interface {
	LoadSummary(ctx context.Context) ([]sales.MonthlySummary, error)
}

// SummaryWarmupJob pre-populates the summary cache for a new version.
type SummaryWarmupJob struct {
	Loader  SummaryLoader
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewSummaryWarmupJob wires dependencies for the warm-up handler.
func NewSummaryWarmupJob(loader SummaryLoader, logger *slog.Logger, metrics *observability.Metrics) *SummaryWarmupJob {
	return &SummaryWarmupJob{Loader: loader, Logger: logger, Metrics: metrics}
}

// Handle processes summary warm-up tasks.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Loader == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("summary warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	defer func() { j.Metrics.ObserveJob(TaskSummaryWarmup, resultErr) }()

	logger := j.logger().With(slog.Int64("version", payload.Version), slog.String("reason", payload.Reason))
	start := time.Now()
	rows, err := j.Loader.LoadSummary(ctx)
	if err != nil {
		logger.Error("warm summary cache", slog.Any("error", err))
		return err
	}
	logger.Info("summary cache warmed", slog.Int("rows", len(rows)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSummaryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSummaryWarmup))
}
