package webserver

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/app"
	"github.com/talkincode/stockroom/internal/store/boltstore"
)

func newTestServer(t *testing.T, auth bool) (*AdminServer, *boltstore.Store) {
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Web.AuthEnable = auth
	cfg.Web.CorsOrigins = "http://localhost:3000, "

	s, err := boltstore.Open(filepath.Join(t.TempDir(), "stock.db"))
	require.NoError(t, err)
	a := app.NewApplication(cfg)
	a.OverrideStore(s)
	return Init(a), s
}

func serve(srv *AdminServer, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv, s := newTestServer(t, false)

	rec := serve(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, s.Close())
	rec = serve(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteKeepsErrorShape(t *testing.T) {
	srv, s := newTestServer(t, false)
	defer s.Close()

	rec := serve(srv, http.MethodGet, ApiPrefix+"/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":"NOT_FOUND","message":"Not Found"}`, rec.Body.String())
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	srv, s := newTestServer(t, true)
	defer s.Close()

	ApiGET("/private", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	ApiPublicPOST("/open", func(c echo.Context) error {
		assert.NotNil(t, GetAppContext(c))
		return c.NoContent(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(srv, http.MethodGet, ApiPrefix+"/private").Code)
	assert.Equal(t, http.StatusNoContent, serve(srv, http.MethodPost, ApiPrefix+"/open").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, s := newTestServer(t, false)
	defer s.Close()

	serve(srv, http.MethodGet, "/healthz")
	rec := serve(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requests_total")
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitOrigins(" a ,,b "))
	assert.Empty(t, splitOrigins(""))
}
