package slidingwindowlog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"learn.slidingwindow/types"
)

// Limiter binds one policy (window and limit) to its own Store.
type Limiter struct {
	key    string // Limiter key from config
	window time.Duration
	limit  int64
	store  *Store
}

// NewLimiter creates a Sliding Window Log limiter backed by a dedicated in-memory store.
// Configuration is validated here so that a bad policy fails before the first request.
func NewLimiter(key string, window time.Duration, limit int64, opts ...Option) (*Limiter, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: limiter '%s': window must be positive, got %s", types.ErrInvalidConfig, key, window)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limiter '%s': limit must be positive, got %d", types.ErrInvalidConfig, key, limit)
	}

	store, err := NewStore(append([]Option{WithName(key)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("limiter '%s': %w", key, err)
	}
	// Compaction must never drop timestamps that still count toward the window.
	if store.retention <= window {
		store.Shutdown()
		return nil, fmt.Errorf("%w: limiter '%s': retention %s must exceed window %s", types.ErrInvalidConfig, key, store.retention, window)
	}

	log.Info().Str("limiter_type", "SlidingWindowLog").Str("backend", "InMemory").Str("limiter_key", key).Dur("window", window).Int64("limit", limit).Msg("Limiter: Initialized")
	return &Limiter{
		key:    key,
		window: window,
		limit:  limit,
		store:  store,
	}, nil
}

// Admit checks whether a request for the given identifier fits in the policy's sliding window.
func (l *Limiter) Admit(ctx context.Context, identifier string) (types.Decision, error) {
	decision, err := l.store.Admit(identifier, l.limit, l.window)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("limiter_type", "SlidingWindowLog").Str("limiter_key", l.key).Str("identifier", identifier).Msg("Limiter: Error in Admit")
		return types.Decision{}, fmt.Errorf("limiter '%s': %w", l.key, err)
	}
	if !decision.Allowed {
		log.Ctx(ctx).Debug().Str("limiter_type", "SlidingWindowLog").Str("limiter_key", l.key).Str("identifier", identifier).Time("reset_at", decision.ResetAt).Msg("Limiter: Request denied")
	}
	return decision, nil
}

// Store exposes the backing store, mainly for diagnostics.
func (l *Limiter) Store() *Store {
	return l.store
}

// Close shuts down the backing store.
func (l *Limiter) Close() error {
	return l.store.Close()
}

var _ types.Limiter = (*Limiter)(nil)
