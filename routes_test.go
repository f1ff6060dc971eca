package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learn.slidingwindow/api"
	"learn.slidingwindow/config"
	"learn.slidingwindow/metrics"
	"learn.slidingwindow/middleware"
)

func newTestRouter(t *testing.T, cfgs ...config.LimiterConfig) http.Handler {
	t.Helper()
	for i := range cfgs {
		cfgs[i].ApplyDefaults()
	}
	limiters, resolved, closer, err := api.NewLimiters(cfgs, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	reg := prometheus.NewRegistry()
	m, err := metrics.NewRateLimitMetrics(reg)
	require.NoError(t, err)

	router, err := newRouter(&limiterSet{Limiters: limiters, Configs: resolved}, m, reg)
	require.NoError(t, err)
	return router
}

func doRequest(router http.Handler, path, ip, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":1234"
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_GlobalAndPrefixedPolicies(t *testing.T) {
	router := newTestRouter(t,
		config.LimiterConfig{Key: "global", WindowParams: &config.WindowConfig{Window: time.Minute, Limit: 3}},
		config.LimiterConfig{
			Key:          "user",
			Identifier:   config.UserOrClientIP,
			PathPrefix:   "/api/user/",
			WindowParams: &config.WindowConfig{Window: time.Minute, Limit: 1},
		},
	)

	rec := doRequest(router, "/", "192.0.2.1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello World!"}`, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get(middleware.HeaderRemaining))

	rec = doRequest(router, "/api/user/profile", "192.0.2.1", "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	// The user policy is exhausted for alice while the global one still has room.
	rec = doRequest(router, "/api/user/profile", "192.0.2.1", "alice")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The global policy is now exhausted for this address.
	rec = doRequest(router, "/", "192.0.2.1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(router, "/", "192.0.2.2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PoliciesRunInConfigOrder(t *testing.T) {
	strict := config.LimiterConfig{
		Key:          "strict",
		Identifier:   config.ClientIPAndPath,
		WindowParams: &config.WindowConfig{Window: 15 * time.Minute, Limit: 2},
	}
	broad := config.LimiterConfig{Key: "broad", WindowParams: &config.WindowConfig{Window: time.Minute, Limit: 100}}

	router := newTestRouter(t, broad, strict)
	rec := doRequest(router, "/", "192.0.2.1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(middleware.HeaderLimit))
	assert.Equal(t, "1", rec.Header().Get(middleware.HeaderRemaining))

	router = newTestRouter(t, strict, broad)
	rec = doRequest(router, "/", "192.0.2.1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get(middleware.HeaderLimit))
	assert.Equal(t, "99", rec.Header().Get(middleware.HeaderRemaining))
}

func TestRouter_UnknownPathsAreLimited(t *testing.T) {
	router := newTestRouter(t,
		config.LimiterConfig{Key: "global", WindowParams: &config.WindowConfig{Window: time.Minute, Limit: 1}},
	)

	rec := doRequest(router, "/missing", "192.0.2.1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "0", rec.Header().Get(middleware.HeaderRemaining))

	rec = doRequest(router, "/", "192.0.2.1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestExceptPath(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := exceptPath("/metrics", blocked)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/extra", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRouter_MetricsAreNotLimited(t *testing.T) {
	router := newTestRouter(t,
		config.LimiterConfig{Key: "global", WindowParams: &config.WindowConfig{Window: time.Minute, Limit: 1}},
	)

	for i := 0; i < 3; i++ {
		rec := doRequest(router, "/metrics", "192.0.2.1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestOnPathPrefix(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := onPathPrefix("/api/", blocked)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeApplication(t *testing.T) {
	data, err := os.ReadFile("config.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	app, cleanup, err := InitializeApplication(config.ServerConfig{Port: 0, ConfigPath: path, ShutdownTimeout: time.Second})
	require.NoError(t, err)
	defer cleanup()

	assert.Len(t, app.Limiters.Limiters, 3)

	// api_path_rate_limit (10 per 15m) comes after api_rate_limit in the file, so its
	// headers reach the client and count down to the rejection.
	for i := 9; i >= 0; i-- {
		rec := doRequest(app.Router, "/", "192.0.2.1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get(middleware.HeaderLimit))
		assert.Equal(t, strconv.Itoa(i), rec.Header().Get(middleware.HeaderRemaining))
	}
	rec := doRequest(app.Router, "/", "192.0.2.1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestInitializeApplication_MissingConfig(t *testing.T) {
	_, _, err := InitializeApplication(config.ServerConfig{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
