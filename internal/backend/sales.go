package backend

import (
	"context"
	"log/slog"

	"github.com/zaiko-kanri/zaiko/internal/sales"
)

// UploadSyncFile posts file as the multipart field "file". Any 2xx is success.
func (c *Client) UploadSyncFile(ctx context.Context, file sales.SyncFile) error {
	resp, err := c.request(ctx).
		SetHeader("Idempotency-Key", newIdempotencyKey()).
		SetFileReader("file", file.Name, file.Content).
		Post(PathSync)
	if err := c.check(PathSync, resp, err); err != nil {
		return err
	}
	c.logger.Debug("sync upload response", slog.Int("status", resp.StatusCode()), slog.String("body", string(resp.Body())))
	return nil
}

// MonthlySummary fetches the per-month sales aggregation.
func (c *Client) MonthlySummary(ctx context.Context) ([]sales.MonthlySummary, error) {
	resp, err := c.request(ctx).Get(PathSummary)
	if err := c.check(PathSummary, resp, err); err != nil {
		return nil, err
	}
	var rows []sales.MonthlySummary
	if err := decode(PathSummary, resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
