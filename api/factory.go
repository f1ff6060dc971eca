package api

import (
	"fmt"

	"learn.slidingwindow/config"
	"learn.slidingwindow/internal/factory"
	"learn.slidingwindow/types"
)

// LimiterFactory creates limiters for one algorithm.
type LimiterFactory interface {
	CreateLimiter(cfg config.LimiterConfig) (factory.ClosableLimiter, error)
}

// NewLimiterFactory returns the factory for the algorithm named in cfg.
// observer receives compaction results from every store the factory creates and may be nil.
func NewLimiterFactory(cfg config.LimiterConfig, observer types.CompactionObserver) (LimiterFactory, error) {
	switch cfg.Algorithm {
	case config.SlidingWindowLog:
		return factory.NewSlidingWindowLogFactory(observer)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm type '%s' for key '%s'", types.ErrInvalidConfig, cfg.Algorithm, cfg.Key)
	}
}
