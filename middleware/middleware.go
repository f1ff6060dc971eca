// Package middleware adapts a rate limit policy to net/http handlers.
package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"learn.slidingwindow/config"
	"learn.slidingwindow/metrics"
	"learn.slidingwindow/types"
)

// Response headers written by the middleware.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"

	// resetTimeFormat matches an ISO 8601 timestamp with millisecond precision.
	resetTimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

// rejection is the JSON body written for requests over the limit.
type rejection struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retryAfter"`
}

// RateLimitMiddleware provides rate limiting functionality for one policy.
type RateLimitMiddleware struct {
	limiter    types.Limiter
	metrics    *metrics.RateLimitMetrics
	limiterKey string
	response   config.ResponseConfig
	nowFunc    func() time.Time
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware. metrics may be nil.
// A nil response uses a 429 status and the default message.
func NewRateLimitMiddleware(limiter types.Limiter, metrics *metrics.RateLimitMetrics, limiterKey string, response *config.ResponseConfig) *RateLimitMiddleware {
	resp := config.ResponseConfig{StatusCode: http.StatusTooManyRequests, Message: config.DefaultMessage}
	if response != nil {
		if response.StatusCode != 0 {
			resp.StatusCode = response.StatusCode
		}
		if response.Message != "" {
			resp.Message = response.Message
		}
	}
	return &RateLimitMiddleware{
		limiter:    limiter,
		metrics:    metrics,
		limiterKey: limiterKey,
		response:   resp,
		nowFunc:    time.Now,
	}
}

// Handle wraps an http.HandlerFunc with rate limiting logic.
// identifierFunc is a function that extracts the identifier (e.g., IP address) from the request.
func (m *RateLimitMiddleware) Handle(next http.HandlerFunc, identifierFunc func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := identifierFunc(r)
		logger := log.With().Str("limiter_key", m.limiterKey).Str("identifier", identifier).Logger()
		ctx := logger.WithContext(r.Context())

		if identifier == "" {
			logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Middleware: Could not extract identifier, denying request")
			m.metrics.RecordError(m.limiterKey)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		decision, err := m.limiter.Admit(ctx, identifier)
		if err != nil {
			logger.Error().Err(err).Msg("Middleware: Error checking rate limit, denying request")
			m.metrics.RecordError(m.limiterKey)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		m.metrics.RecordRequest(m.limiterKey, decision.Allowed)

		if decision.Allowed {
			h := w.Header()
			h.Set(HeaderLimit, strconv.FormatInt(decision.Limit, 10))
			h.Set(HeaderRemaining, strconv.FormatInt(decision.Remaining, 10))
			h.Set(HeaderReset, decision.ResetAt.UTC().Format(resetTimeFormat))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		retryAfter := retryAfterSeconds(decision.ResetAt, m.nowFunc())
		logger.Info().Int64("retry_after", retryAfter).Msg("Middleware: Request rate limited")
		m.writeRejection(w, retryAfter)
	}
}

// Middleware returns the rate limiter in the func(http.Handler) http.Handler form used by routers.
func (m *RateLimitMiddleware) Middleware(identifierFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Handle(next.ServeHTTP, identifierFunc)
	}
}

func (m *RateLimitMiddleware) writeRejection(w http.ResponseWriter, retryAfter int64) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set(HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(m.response.StatusCode)
	if err := json.NewEncoder(w).Encode(rejection{Error: m.response.Message, RetryAfter: retryAfter}); err != nil {
		log.Warn().Err(err).Str("limiter_key", m.limiterKey).Msg("Middleware: Failed to write rejection body")
	}
}

// retryAfterSeconds rounds the wait up to whole seconds, never below one.
func retryAfterSeconds(resetAt, now time.Time) int64 {
	secs := int64(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
