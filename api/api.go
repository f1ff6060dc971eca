package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	apiinternal "learn.slidingwindow/api/internal"
	"learn.slidingwindow/config"
	"learn.slidingwindow/internal/factory"
	"learn.slidingwindow/types"
)

// storeCloser shuts down every store created from a configuration file. It implements io.Closer.
type storeCloser struct {
	limiters []factory.ClosableLimiter
	keys     []string
}

// Close gracefully shuts down all stores held by the storeCloser.
func (c *storeCloser) Close() error {
	log.Info().Int("limiters", len(c.limiters)).Msg("API: Starting limiter store shutdown")
	var errs []error
	for i, l := range c.limiters {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close limiter '%s': %w", c.keys[i], err))
			log.Error().Err(err).Str("limiter_key", c.keys[i]).Msg("API: Error closing limiter")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info().Msg("API: Limiter store shutdown complete")
	return nil
}

// NewLimitersFromConfigPath loads config and returns a map of rate limiters keyed by limiter key,
// the resolved configurations in file order, and an io.Closer that shuts their stores down.
// observer receives compaction results and may be nil.
func NewLimitersFromConfigPath(configPath string, observer types.CompactionObserver) (map[string]types.Limiter, []config.LimiterConfig, io.Closer, error) {
	log.Info().Str("config_path", configPath).Msg("API: Starting initialization of rate limiters")
	cfgFile, err := apiinternal.LoadConfig(configPath)
	if err != nil {
		log.Error().Err(err).Str("config_path", configPath).Msg("API: Initialization failed: Error loading configuration")
		return nil, nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}

	if len(cfgFile.Limiters) == 0 {
		log.Error().Str("config_path", configPath).Msg("API: Initialization failed: No limiter configurations found")
		return nil, nil, nil, fmt.Errorf("no limiter configurations found in %s", configPath)
	}

	return NewLimiters(cfgFile.Limiters, observer)
}

// NewLimiters builds one isolated limiter per configuration entry.
// The returned configurations keep the order of cfgs.
// If any limiter fails, the ones already created are closed before returning.
func NewLimiters(cfgs []config.LimiterConfig, observer types.CompactionObserver) (map[string]types.Limiter, []config.LimiterConfig, io.Closer, error) {
	limiters := make(map[string]types.Limiter, len(cfgs))
	limiterConfigs := make([]config.LimiterConfig, 0, len(cfgs))
	closer := &storeCloser{}

	fail := func(err error) (map[string]types.Limiter, []config.LimiterConfig, io.Closer, error) {
		if closeErr := closer.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("API: Error releasing limiters after failed initialization")
		}
		return nil, nil, nil, err
	}

	log.Info().Int("count", len(cfgs)).Msg("API: Creating limiter instances")
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("API: Initialization failed for limiter")
			return fail(err)
		}
		if _, dup := limiters[cfg.Key]; dup {
			return fail(fmt.Errorf("duplicate limiter key '%s'", cfg.Key))
		}

		limiterFactory, err := NewLimiterFactory(cfg, observer)
		if err != nil {
			return fail(fmt.Errorf("limiter '%s': failed to get factory: %w", cfg.Key, err))
		}

		limiter, err := limiterFactory.CreateLimiter(cfg)
		if err != nil {
			return fail(fmt.Errorf("limiter '%s': failed to create instance: %w", cfg.Key, err))
		}

		limiters[cfg.Key] = limiter
		limiterConfigs = append(limiterConfigs, cfg)
		closer.limiters = append(closer.limiters, limiter)
		closer.keys = append(closer.keys, cfg.Key)
		log.Info().Str("limiter_key", cfg.Key).Str("algorithm", string(cfg.Algorithm)).Str("backend", string(cfg.Backend)).Msg("API: Limiter created successfully")
	}

	log.Info().Msg("API: All rate limiters initialized")
	return limiters, limiterConfigs, closer, nil
}
