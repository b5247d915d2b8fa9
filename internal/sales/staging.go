package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const stagingPrefix = "zaiko:sales:staged:"

// ErrStagedFileMissing is returned when a staged file expired or was already taken.
var ErrStagedFileMissing = errors.New("sales: staged file missing")

// FileStaging holds uploaded files in Redis until the worker picks them up.
type FileStaging struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFileStaging constructs a staging area whose entries expire after ttl.
func NewFileStaging(client *redis.Client, ttl time.Duration) *FileStaging {
	return &FileStaging{client: client, ttl: ttl}
}

// Put stores content and returns its staging key.
func (f *FileStaging) Put(ctx context.Context, content []byte) (string, error) {
	key := stagingPrefix + uuid.NewString()
	if err := f.client.Set(ctx, key, content, f.ttl).Err(); err != nil {
		return "", fmt.Errorf("sales: stage file: %w", err)
	}
	return key, nil
}

// Load returns the staged content. The entry stays until Discard so a
// failed upload can be retried.
func (f *FileStaging) Load(ctx context.Context, key string) ([]byte, error) {
	content, err := f.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrStagedFileMissing, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sales: take staged file: %w", err)
	}
	return content, nil
}

// Discard drops a staged file once it is uploaded or abandoned.
func (f *FileStaging) Discard(ctx context.Context, key string) {
	_ = f.client.Del(ctx, key).Err()
}
