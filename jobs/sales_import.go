package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/sales"
)

// StagedImporter uploads a file previously staged by the web process.
type StagedImporter interface {
	ProcessStagedFile(ctx context.Context, stagingKey, name string) error
}

// SalesImportJob runs asynchronous sales file uploads.
type SalesImportJob struct {
	Importer StagedImporter
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewSalesImportJob wires dependencies for the import handler.
func NewSalesImportJob(importer StagedImporter, logger *slog.Logger, metrics *observability.Metrics) *SalesImportJob {
	return &SalesImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle processes sales import tasks. A file that is no longer staged
// cannot succeed on retry.
func (j *SalesImportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Importer == nil {
		return errors.New("sales import: handler not configured")
	}
	var payload SalesImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.StagingKey == "" {
		return fmt.Errorf("sales import: invalid payload: %w", asynq.SkipRetry)
	}
	defer func() { j.Metrics.ObserveJob(TaskSalesImport, resultErr) }()

	logger := j.logger().With(slog.String("file", payload.Name))
	if err := j.Importer.ProcessStagedFile(ctx, payload.StagingKey, payload.Name); err != nil {
		logger.Error("upload staged file", slog.Any("error", err))
		if errors.Is(err, sales.ErrStagedFileMissing) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("staged file uploaded")
	return nil
}

func (j *SalesImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSalesImport))
	}
	return slog.Default().With(slog.String("job", TaskSalesImport))
}
