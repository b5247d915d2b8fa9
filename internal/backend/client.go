// Package backend talks to the inventory backend API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

// Backend endpoint paths.
const (
	PathSync        = "/api/inventory/sync"
	PathSummary     = "/api/inventory/summary"
	PathProductList = "/api/inventory/products/"
	PathProducts    = "/api/inventory/products/%d/"
	PathHistory     = "/api/inventory/inventories/%d/"
	PathPurchases   = "/api/inventory/purchases/"
	PathSales       = "/api/inventory/sales/"
)

// ErrUnavailable wraps transport failures.
var ErrUnavailable = errors.New("backend: unavailable")

// BusinessError is a 4xx rejection carrying the backend's message.
type BusinessError struct {
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("backend: rejected (%d): %s", e.Status, e.Message)
}

// UserMessage implements shared.UserMessenger.
func (e *BusinessError) UserMessage() string { return e.Message }

// StatusError is an unexpected response status.
type StatusError struct {
	Status int
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s returned %d", e.Path, e.Status)
}

type errorBody struct {
	ErrMsg string `json:"errMsg"`
	Detail string `json:"detail"`
}

func (b *errorBody) message() string {
	if b == nil {
		return ""
	}
	if b.ErrMsg != "" {
		return b.ErrMsg
	}
	return b.Detail
}

// Client is a resty-based client for the backend API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient constructs a Client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, logger: logger}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

// check maps transport errors and non-2xx responses to package errors.
func (c *Client) check(path string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	if !resp.IsError() {
		return nil
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("backend: %s: %w", path, shared.ErrNotFound)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		body, _ := resp.Error().(*errorBody)
		msg := body.message()
		if msg == "" {
			return &StatusError{Status: resp.StatusCode(), Path: path}
		}
		return &BusinessError{Status: resp.StatusCode(), Message: msg}
	default:
		return &StatusError{Status: resp.StatusCode(), Path: path}
	}
}

func decode(path string, resp *resty.Response, dest any) error {
	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

func newIdempotencyKey() string {
	return uuid.NewString()
}
