package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"learn.slidingwindow/metrics"
	"learn.slidingwindow/middleware"
)

const metricsPath = "/metrics"

// newRouter mounts every configured policy, in configuration order, in front of all routes
// except /metrics. The last matching policy sets the X-RateLimit-* headers.
func newRouter(set *limiterSet, m *metrics.RateLimitMetrics, reg *prometheus.Registry) (http.Handler, error) {
	limiters := make([]func(http.Handler) http.Handler, 0, len(set.Configs))
	for _, cfg := range set.Configs {
		limiter, ok := set.Limiters[cfg.Key]
		if !ok {
			return nil, fmt.Errorf("rate limiter '%s' has a config but no instance", cfg.Key)
		}
		identifierFunc, err := middleware.IdentifierFuncFor(cfg.Identifier)
		if err != nil {
			return nil, fmt.Errorf("rate limiter '%s': %w", cfg.Key, err)
		}
		mw := middleware.NewRateLimitMiddleware(limiter, m, cfg.Key, cfg.Response)
		limiters = append(limiters, onPathPrefix(cfg.PathPrefix, mw.Middleware(identifierFunc)))
		log.Info().Str("limiter_key", cfg.Key).Str("path_prefix", cfg.PathPrefix).Str("identifier", string(cfg.Identifier)).Msg("Router: Rate limiter mounted")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(exceptPath(metricsPath, chi.Chain(limiters...).Handler))

	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/", helloHandler)
	r.Get("/api/user/profile", profileHandler)
	return r, nil
}

// exceptPath skips mw for requests to exactly path.
func exceptPath(path string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// onPathPrefix applies mw only to requests whose path starts with prefix.
func onPathPrefix(prefix string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func helloHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World!"})
}

func profileHandler(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get(middleware.HeaderUserID)
	if user == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user identity"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user": user})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response body")
	}
}
