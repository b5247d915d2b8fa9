package sales

import (
	"errors"
	"io"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

// Messages shown by the sales import screen.
const (
	MsgNoFile        = "ファイルを選択してください"
	MsgSyncAccepted  = "同期ファイルが登録されました"
	MsgSyncFailed    = "同期ファイルの登録に失敗しました。再度お試しください"
	MsgAsyncAccepted = "非同期ファイルが登録されました"
	MsgAsyncFailed   = "非同期ファイルの登録に失敗しました。再度お試しください"
	MsgSummaryFailed = "売上集計の取得に失敗しました"
	MsgFileTooLarge  = "ファイルサイズが上限を超えています"
)

// MonthlySummary is one row of the per-month sales aggregation.
type MonthlySummary struct {
	MonthlyDate  string `json:"monthly_date"`
	MonthlyPrice int64  `json:"monthly_price"`
}

// SyncFile is a file selected for synchronous import.
type SyncFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

var (
	// ErrNoFile is returned when a submission carries no selected file.
	ErrNoFile = shared.NewUserError(errors.New("sales: no sync file selected"), MsgNoFile)
	// ErrSyncFailed marks an upload the backend did not accept.
	ErrSyncFailed = shared.NewUserError(errors.New("sales: sync upload failed"), MsgSyncFailed)
	// ErrAsyncFailed marks a file that could not be queued for background upload.
	ErrAsyncFailed = shared.NewUserError(errors.New("sales: async import failed"), MsgAsyncFailed)
	// ErrFileTooLarge is returned when the upload exceeds the request size limit.
	ErrFileTooLarge = shared.NewUserError(errors.New("sales: sync file too large"), MsgFileTooLarge)
	// ErrSummaryFailed marks a summary that could not be loaded.
	ErrSummaryFailed = shared.NewUserError(errors.New("sales: summary unavailable"), MsgSummaryFailed)
)
