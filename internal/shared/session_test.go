package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "session-secret", time.Hour, false)
}

func TestFlashSurvivesRedirect(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	postReq := httptest.NewRequest(http.MethodPost, "/inventory/import_sales/sync", nil)
	sess, err := sm.Load(ctx, postReq)
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: KindSuccess, Message: "同期ファイルが登録されました"})
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, postReq, sess))

	getReq := httptest.NewRequest(http.MethodGet, "/inventory/import_sales", nil)
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	getReq.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, getReq)
	require.NoError(t, err)

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, KindSuccess, flash.Kind)
	require.Nil(t, loaded.PopFlash())
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), getReq, loaded))

	again, err := sm.Load(ctx, getReq)
	require.NoError(t, err)
	require.Nil(t, again.PopFlash(), "notification must be shown only once")
}

func TestCSRFRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	csrf := NewCSRFManager("secret")
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
}

func TestTamperedCookieStartsNewSession(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("k", "v")
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	signed := res.Result().Cookies()[0].Value
	require.True(t, strings.HasPrefix(signed, sess.ID+"."))

	for _, value := range []string{sess.ID, sess.ID + ".forged", signed + "x"} {
		forged := httptest.NewRequest(http.MethodGet, "/", nil)
		forged.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: value})
		loaded, err := sm.Load(ctx, forged)
		require.NoError(t, err)
		require.NotEqual(t, sess.ID, loaded.ID, value)
		require.Empty(t, loaded.Get("k"))
	}
}
