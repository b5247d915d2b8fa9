package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/sales"
)

type stubLoader struct {
	calls int
	err   error
}

func (s *stubLoader) LoadSummary(context.Context) ([]sales.MonthlySummary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []sales.MonthlySummary{{MonthlyDate: "2024-01", MonthlyPrice: 100}}, nil
}

func TestNewSummaryWarmupTask(t *testing.T) {
	task, err := NewSummaryWarmupTask(7, "sync_upload")
	require.NoError(t, err)
	require.Equal(t, TaskSummaryWarmup, task.Type())

	var payload SummaryWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, SummaryWarmupPayload{Version: 7, Reason: "sync_upload"}, payload)
}

func TestSummaryWarmupLoadsSummary(t *testing.T) {
	loader := &stubLoader{}
	job := NewSummaryWarmupJob(loader, nil, observability.NewMetrics())
	task, err := NewSummaryWarmupTask(2, "stock_sell")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, loader.calls)
}

func TestSummaryWarmupPropagatesFailure(t *testing.T) {
	loader := &stubLoader{err: errors.New("backend down")}
	job := NewSummaryWarmupJob(loader, nil, nil)
	task, err := NewSummaryWarmupTask(3, "sync_upload")
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
}

func TestSummaryWarmupSkipsBadPayload(t *testing.T) {
	loader := &stubLoader{}
	job := NewSummaryWarmupJob(loader, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSummaryWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, loader.calls)
}

func TestUnconfiguredWarmup(t *testing.T) {
	var job *SummaryWarmupJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskSummaryWarmup, nil)))
}

func TestHealthWithoutInspector(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Zero(t, body.Pending)
}
