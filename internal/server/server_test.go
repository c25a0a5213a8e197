package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roamfree/internal/config"
	"roamfree/internal/database"
	"roamfree/web"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.DriverMemory
	cfg.Distance.Enabled = false
	cfg.LLM.BaseURL = "http://127.0.0.1:1"

	srv, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, srv.Shutdown(context.Background()))
	})
	return srv
}

func TestLoadEmbeddedTemplates(t *testing.T) {
	set, err := loadTemplates(web.Templates)
	require.NoError(t, err)

	assert.Contains(t, set.Pages, "index.html")
	assert.Contains(t, set.Pages, "login.html")
	assert.NotNil(t, set.Base.Lookup("layout.html"))
	assert.NotNil(t, set.Base.Lookup("place_suggestions.html"))
}

func TestLoadTemplatesMissingLayout(t *testing.T) {
	_, err := loadTemplates(fstest.MapFS{})
	assert.ErrorContains(t, err, "failed to read layout")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	store, err := openStore(ctx, config.StoreConfig{Driver: config.DriverMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &database.MemoryStore{}, store)

	dir := t.TempDir()
	store, err = openStore(ctx, config.StoreConfig{Driver: config.DriverFile, Path: dir + "/data.json"}, logger)
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.Close())

	store, err = openStore(ctx, config.StoreConfig{Driver: config.DriverSQLite, Path: dir + "/data.db"}, logger)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Close())

	_, err = openStore(ctx, config.StoreConfig{Driver: "cassandra"}, logger)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestServerServesHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"connected"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roamfree_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/health"`)
}

func TestServerGatesIndexAndServesLogin(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RoamFree")
}

func TestServerServesStatic(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlannerScriptWiresMapAndWishlist(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/js/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	// Clicking the map sets a custom start point.
	assert.Contains(t, body, "map.on('click'")
	assert.Contains(t, body, "api('PUT', '/session/start', { lat: e.latlng.lat, lng: e.latlng.lng })")
	// Wishlist rows keep duration and saved date after a client-side refresh.
	assert.Contains(t, body, "formatDuration(w.totalEstimatedTime)")
	assert.Contains(t, body, "formatSavedAt(w.savedAt)")
}

func TestServerStartAndShutdown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.DriverMemory
	cfg.Server.Addr = "127.0.0.1:0"
	srv, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	addr, err := srv.Start()
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Get("http://" + addr + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestSlogLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(newSlogLogger(logger))
	r.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	line := buf.String()
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"path":"/teapot"`)
	assert.Contains(t, line, `"request_id":`)
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	h := newCORSHandler([]string{"http://localhost:*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.instrument)
	r.Get("/wishlist/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wishlist/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/wishlist/{id}", "200")))
}

func TestOpenURLRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/open-url", strings.NewReader(`{"url":"https://example.com"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
