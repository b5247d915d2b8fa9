package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSummaryWarmup refills the monthly summary cache after a data change.
	TaskSummaryWarmup = "inventory:summary_warmup"
	// TaskSalesImport uploads a staged sales file to the backend.
	TaskSalesImport = "inventory:sales_import"
)

// SummaryWarmupPayload identifies the cache version a warm-up targets.
type SummaryWarmupPayload struct {
	Version int64  `json:"version"`
	Reason  string `json:"reason"`
}

// NewSummaryWarmupTask constructs the warm-up task. Tasks for the same
// version share an ID so repeated signals collapse into one job.
func NewSummaryWarmupTask(version int64, reason string) (*asynq.Task, error) {
	data, err := json.Marshal(SummaryWarmupPayload{Version: version, Reason: reason})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(30 * time.Second)}
	if version > 0 {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("summary-warmup-%d", version)), asynq.Retention(time.Hour))
	}
	return asynq.NewTask(TaskSummaryWarmup, data, opts...), nil
}

// SalesImportPayload points at a file staged in Redis.
type SalesImportPayload struct {
	StagingKey string `json:"staging_key"`
	Name       string `json:"name"`
}

// NewSalesImportTask constructs the background upload task. The staging key
// doubles as the task ID so a file is queued at most once.
func NewSalesImportTask(stagingKey, name string) (*asynq.Task, error) {
	data, err := json.Marshal(SalesImportPayload{StagingKey: stagingKey, Name: name})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesImport, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.TaskID(stagingKey),
	), nil
}
