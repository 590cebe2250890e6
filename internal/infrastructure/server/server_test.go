package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gitdrive/internal/api/middleware"
	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/config"
	"github.com/GriffinCanCode/gitdrive/internal/testing/fakegh"
)

func newTestServer(t *testing.T) (*Server, *fakegh.Server) {
	t.Helper()
	backend := fakegh.New()
	t.Cleanup(backend.Close)

	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Store.BaseURL = backend.URL
	cfg.Store.RequestsPerSecond = 0
	cfg.Settings.Path = filepath.Join(t.TempDir(), "gitdrive.toml")

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return srv, backend
}

func serve(srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestServerEndToEnd(t *testing.T) {
	srv, backend := newTestServer(t)
	backend.Seed(map[string]string{"drive/readme.md": "# drive"})

	rec := serve(srv, http.MethodGet, "/api/fs/list", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	body, err := sonic.Marshal(map[string]string{
		"token": fakegh.Token,
		"owner": fakegh.Owner,
		"repo":  fakegh.Repo,
		"dir":   "drive",
	})
	require.NoError(t, err)
	rec = serve(srv, http.MethodPut, "/api/config", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(srv, http.MethodGet, "/api/fs/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"readme.md"`)

	rec = serve(srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"configured":true`)

	rec = serve(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	metrics := rec.Body.String()
	assert.Contains(t, metrics, `gitdrive_http_requests_total{method="GET",path="/api/fs/list",status="200"} 1`)
	assert.Contains(t, metrics, "gitdrive_backend_calls_total")
	assert.Contains(t, metrics, "gitdrive_tree_operations_total")
}

func TestServerCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/fs/list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerRejectsForeignOrigins(t *testing.T) {
	srv, backend := newTestServer(t)

	body, err := sonic.Marshal(map[string]string{"path": "photos"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/api/fs/dir", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, backend.Calls())
}

func TestServerBindsLoopbackByDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, "127.0.0.1:8000", srv.http.Addr)
}
