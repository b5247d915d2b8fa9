package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zaiko-kanri/zaiko/internal/inventory"
	"github.com/zaiko-kanri/zaiko/internal/observability"
)

// API is the backend collaborator for the sales import screen.
type API interface {
	UploadSyncFile(ctx context.Context, file SyncFile) error
	MonthlySummary(ctx context.Context) ([]MonthlySummary, error)
}

// WarmupEnqueuer schedules a background refill of the summary cache.
type WarmupEnqueuer interface {
	EnqueueSummaryWarmup(ctx context.Context, version int64, reason string) error
}

// ImportEnqueuer schedules a staged file for background upload.
type ImportEnqueuer interface {
	EnqueueSalesImport(ctx context.Context, stagingKey, name string) error
}

const defaultLoadTimeout = 10 * time.Second

// Service implements sync and async uploads, the monthly summary and the
// data-changed signal that invalidates it.
type Service struct {
	api         API
	cache       *SummaryCache
	warmup      WarmupEnqueuer
	staging     *FileStaging
	imports     ImportEnqueuer
	metrics     *observability.Metrics
	logger      *slog.Logger
	loadTimeout time.Duration
	group       singleflight.Group
}

// ServiceParams groups Service dependencies. Everything but API is optional;
// async imports need both Staging and Imports.
type ServiceParams struct {
	API         API
	Cache       *SummaryCache
	Warmup      WarmupEnqueuer
	Staging     *FileStaging
	Imports     ImportEnqueuer
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	LoadTimeout time.Duration
}

// NewService builds Service.
func NewService(params ServiceParams) *Service {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loadTimeout := params.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	return &Service{
		api:         params.API,
		cache:       params.Cache,
		warmup:      params.Warmup,
		staging:     params.Staging,
		imports:     params.Imports,
		metrics:     params.Metrics,
		logger:      logger,
		loadTimeout: loadTimeout,
	}
}

// SubmitSyncFile uploads file to the sync endpoint. A missing file fails
// with ErrNoFile before any network call.
func (s *Service) SubmitSyncFile(ctx context.Context, file *SyncFile) error {
	if file == nil || file.Name == "" || file.Content == nil {
		s.metrics.ObserveSyncUpload("no_file")
		return ErrNoFile
	}
	if err := s.api.UploadSyncFile(ctx, *file); err != nil {
		s.metrics.ObserveSyncUpload("failed")
		return fmt.Errorf("%w: %s: %w", ErrSyncFailed, file.Name, err)
	}
	s.metrics.ObserveSyncUpload("accepted")
	s.DataChanged(ctx, "sync_upload")
	return nil
}

// SubmitAsyncFile stages file in Redis and queues it for background upload.
// A missing file fails with ErrNoFile before anything is staged.
func (s *Service) SubmitAsyncFile(ctx context.Context, file *SyncFile) error {
	if file == nil || file.Name == "" || file.Content == nil {
		s.metrics.ObserveSyncUpload("no_file")
		return ErrNoFile
	}
	if s.staging == nil || s.imports == nil {
		s.metrics.ObserveSyncUpload("failed")
		return fmt.Errorf("%w: async import not configured", ErrAsyncFailed)
	}
	content, err := io.ReadAll(file.Content)
	if err != nil {
		s.metrics.ObserveSyncUpload("failed")
		return fmt.Errorf("%w: read %s: %w", ErrAsyncFailed, file.Name, err)
	}
	key, err := s.staging.Put(ctx, content)
	if err != nil {
		s.metrics.ObserveSyncUpload("failed")
		return fmt.Errorf("%w: stage %s: %w", ErrAsyncFailed, file.Name, err)
	}
	if err := s.imports.EnqueueSalesImport(ctx, key, file.Name); err != nil {
		s.staging.Discard(ctx, key)
		s.metrics.ObserveSyncUpload("failed")
		return fmt.Errorf("%w: enqueue %s: %w", ErrAsyncFailed, file.Name, err)
	}
	s.metrics.ObserveSyncUpload("queued")
	return nil
}

// ProcessStagedFile uploads a staged file and emits the data-changed signal.
// It runs in the worker.
func (s *Service) ProcessStagedFile(ctx context.Context, stagingKey, name string) error {
	if s.staging == nil {
		return errors.New("sales: file staging not configured")
	}
	content, err := s.staging.Load(ctx, stagingKey)
	if err != nil {
		return err
	}
	if err := s.api.UploadSyncFile(ctx, SyncFile{
		Name:    name,
		Size:    int64(len(content)),
		Content: bytes.NewReader(content),
	}); err != nil {
		s.metrics.ObserveSyncUpload("failed")
		return fmt.Errorf("%w: %s: %w", ErrSyncFailed, name, err)
	}
	s.staging.Discard(ctx, stagingKey)
	s.metrics.ObserveSyncUpload("accepted")
	s.DataChanged(ctx, "async_upload")
	return nil
}

// LoadSummary returns the monthly summary, replacing any previous result.
// Concurrent callers share one load; the shared load is detached from any
// single caller so one cancelled request does not fail the others.
func (s *Service) LoadSummary(ctx context.Context) ([]MonthlySummary, error) {
	key, err := s.cache.BuildKey(ctx, "summary")
	if err != nil {
		s.logger.Warn("summary cache key", slog.Any("error", err))
		return s.fetchSummary(ctx)
	}
	res := s.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.loadCached(loadCtx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		rows, _ := r.Val.([]MonthlySummary)
		return append([]MonthlySummary{}, rows...), nil
	}
}

func (s *Service) loadCached(ctx context.Context, key string) ([]MonthlySummary, error) {
	var rows []MonthlySummary
	hit, err := s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (any, error) {
		return s.fetchSummary(ctx)
	})
	if err != nil {
		if errors.Is(err, ErrSummaryFailed) {
			return nil, err
		}
		s.logger.Warn("summary cache unavailable", slog.Any("error", err))
		return s.fetchSummary(ctx)
	}
	if hit {
		s.metrics.ObserveSummaryCache("hit")
	} else {
		s.metrics.ObserveSummaryCache("miss")
	}
	return rows, nil
}

func (s *Service) fetchSummary(ctx context.Context) ([]MonthlySummary, error) {
	rows, err := s.api.MonthlySummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummaryFailed, err)
	}
	if rows == nil {
		rows = []MonthlySummary{}
	}
	return rows, nil
}

// DataChanged invalidates cached summaries and schedules a warm-up. It is
// called only after a mutation has been confirmed.
func (s *Service) DataChanged(ctx context.Context, reason string) {
	version, err := s.cache.Bump(ctx)
	if err != nil {
		s.logger.Warn("bump summary cache", slog.String("reason", reason), slog.Any("error", err))
		return
	}
	if s.warmup == nil {
		return
	}
	if err := s.warmup.EnqueueSummaryWarmup(ctx, version, reason); err != nil {
		s.logger.Warn("enqueue summary warmup", slog.String("reason", reason), slog.Any("error", err))
	}
}

// HandleStockChanged implements inventory.ChangeHandler.
func (s *Service) HandleStockChanged(ctx context.Context, evt inventory.StockChangedEvent) error {
	s.DataChanged(ctx, "stock_"+string(evt.Kind))
	return nil
}
