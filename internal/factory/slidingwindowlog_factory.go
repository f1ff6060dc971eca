package factory

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"learn.slidingwindow/config"
	swlog "learn.slidingwindow/internal/slidingwindowlog"
	"learn.slidingwindow/types"
)

// ClosableLimiter is a limiter that owns resources released by Close.
type ClosableLimiter interface {
	types.Limiter
	Close() error
}

// SlidingWindowLogFactory creates limiters using the Sliding Window Log algorithm.
type SlidingWindowLogFactory struct {
	observer types.CompactionObserver
}

// NewSlidingWindowLogFactory returns a factory whose stores report compactions to observer (may be nil).
func NewSlidingWindowLogFactory(observer types.CompactionObserver) (*SlidingWindowLogFactory, error) {
	return &SlidingWindowLogFactory{observer: observer}, nil
}

// CreateLimiter creates a Sliding Window Log limiter based on the configuration.
func (f *SlidingWindowLogFactory) CreateLimiter(cfg config.LimiterConfig) (ClosableLimiter, error) {
	log.Debug().Str("limiter_key", cfg.Key).Str("backend", string(cfg.Backend)).Msg("Factory(SlidingWindowLog): Creating limiter")
	if cfg.WindowParams == nil {
		err := fmt.Errorf("%w: sliding window log parameters are missing in config for key '%s'", types.ErrInvalidConfig, cfg.Key)
		log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(SlidingWindowLog): Creation failed")
		return nil, err
	}

	switch cfg.Backend {
	case config.InMemory:
		opts := []swlog.Option{}
		if cfg.CompactionParams != nil {
			opts = append(opts,
				swlog.WithRetention(cfg.CompactionParams.Retention),
				swlog.WithCompactionInterval(cfg.CompactionParams.Interval),
			)
		}
		if f.observer != nil {
			opts = append(opts, swlog.WithObserver(f.observer))
		}
		log.Info().Str("limiter_key", cfg.Key).Dur("window", cfg.WindowParams.Window).Int64("limit", cfg.WindowParams.Limit).Msg("Factory(SlidingWindowLog): Creating in-memory limiter")
		limiter, err := swlog.NewLimiter(cfg.Key, cfg.WindowParams.Window, cfg.WindowParams.Limit, opts...)
		if err != nil {
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(SlidingWindowLog): Creation failed")
			return nil, err
		}
		return limiter, nil
	default:
		err := fmt.Errorf("%w: unsupported backend type '%s' for sliding window log for key '%s'", types.ErrInvalidConfig, cfg.Backend, cfg.Key)
		log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(SlidingWindowLog): Creation failed")
		return nil, err
	}
}
