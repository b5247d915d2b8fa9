package app

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zaiko-kanri/zaiko/internal/backend"
	"github.com/zaiko-kanri/zaiko/internal/inventory"
	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/sales"
	"github.com/zaiko-kanri/zaiko/internal/shared"
	"github.com/zaiko-kanri/zaiko/internal/view"
	"github.com/zaiko-kanri/zaiko/jobs"
	_ "github.com/zaiko-kanri/zaiko/testing"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type emptyAPI struct{}

func (emptyAPI) UploadSyncFile(context.Context, sales.SyncFile) error { return nil }

func (emptyAPI) MonthlySummary(context.Context) ([]sales.MonthlySummary, error) {
	return []sales.MonthlySummary{{MonthlyDate: "2024-01", MonthlyPrice: 100}}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith uses products for the home page, or the sample store when nil.
func newTestServerWith(t *testing.T, products ProductLister) (*httptest.Server, *http.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{AppEnv: "test", UploadMaxBytes: 1 << 20, AppRequestTimeout: 5 * time.Second}
	templates, err := view.NewEngine()
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("csrf-secret")
	metrics := observability.NewMetrics()

	store, err := inventory.NewSampleStore()
	require.NoError(t, err)
	salesService := sales.NewService(sales.ServiceParams{
		API:     emptyAPI{},
		Cache:   sales.NewSummaryCache(client, time.Minute),
		Metrics: metrics,
	})
	inventoryService := inventory.NewService(store, salesService, nil)
	if products == nil {
		products = store
	}

	router := NewRouter(RouterParams{
		Logger:           nil,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   shared.NewSessionManager(client, "zaiko_session", "session-secret", time.Hour, false),
		CSRFManager:      csrf,
		SalesHandler:     sales.NewHandler(nil, salesService, templates, csrf),
		InventoryHandler: inventory.NewHandler(nil, inventoryService, templates, csrf, metrics),
		JobHandler:       jobs.NewHandler(nil, nil),
		Products:         products,
		Metrics:          metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHealthz(t *testing.T) {
	srv, client := newTestServer(t)
	res, err := client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, readBody(t, res))
}

func TestHomeListsSampleProducts(t *testing.T) {
	srv, client := newTestServer(t)
	res, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, `href="/inventory/import_sales"`)
	require.Contains(t, body, `href="/inventory/products/1"`)
	require.NotEmpty(t, res.Header.Get("X-Frame-Options"))
}

func TestHomeListsBackendProducts(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, backend.PathProductList, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":7,"name":"抹茶","price":1500}]`))
	}))
	t.Cleanup(backendSrv.Close)

	srv, client := newTestServerWith(t, backend.NewClient(backendSrv.URL, time.Second, nil))
	res, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, `href="/inventory/products/7"`)
	require.Contains(t, body, "抹茶")
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	srv, client := newTestServer(t)
	form := url.Values{"quantity": {"1"}}
	res, err := client.PostForm(srv.URL+"/inventory/products/1/purchase", form)
	require.NoError(t, err)
	readBody(t, res)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestPurchaseRoundTrip(t *testing.T) {
	srv, client := newTestServer(t)

	res, err := client.Get(srv.URL + "/inventory/products/1")
	require.NoError(t, err)
	match := csrfPattern.FindStringSubmatch(readBody(t, res))
	require.Len(t, match, 2)

	form := url.Values{"quantity": {"5"}, "csrf_token": {match[1]}}
	res, err = client.PostForm(srv.URL+"/inventory/products/1/purchase", form)
	require.NoError(t, err)
	body := readBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "/inventory/products/1", res.Request.URL.Path)
	require.Equal(t, 1, strings.Count(body, inventory.MsgPurchased))
	require.Contains(t, body, "<td>40</td>")
}

func TestSummaryPageAndMetrics(t *testing.T) {
	srv, client := newTestServer(t)

	res, err := client.Get(srv.URL + "/inventory/import_sales")
	require.NoError(t, err)
	require.Contains(t, readBody(t, res), "<tr><td>2024-01</td><td>100</td></tr>")

	res, err = client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body := readBody(t, res)
	require.Contains(t, body, "zaiko_http_requests_total")
	require.Contains(t, body, `zaiko_summary_cache_total{outcome="miss"} 1`)
}

func TestJobsHealth(t *testing.T) {
	srv, client := newTestServer(t)
	res, err := client.Get(srv.URL + "/jobs/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, readBody(t, res), `"queue":"default"`)
}
