package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"learn.slidingwindow/api"
	"learn.slidingwindow/config"
	"learn.slidingwindow/metrics"
	"learn.slidingwindow/types"
)

// application holds the fully wired components the server needs.
type application struct {
	Settings config.ServerConfig
	Router   http.Handler
	Limiters *limiterSet
}

// limiterSet is every configured policy together with its resolved configuration.
// Configs is in configuration file order.
type limiterSet struct {
	Limiters map[string]types.Limiter
	Configs  []config.LimiterConfig
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func provideMetrics(reg *prometheus.Registry) (*metrics.RateLimitMetrics, error) {
	return metrics.NewRateLimitMetrics(reg)
}

// provideLimiters builds the policies from the configuration file. The cleanup shuts every store down.
func provideLimiters(settings config.ServerConfig, m *metrics.RateLimitMetrics) (*limiterSet, func(), error) {
	limiters, cfgs, closer, err := api.NewLimitersFromConfigPath(settings.ConfigPath, m)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize rate limiters from %s: %w", settings.ConfigPath, err)
	}
	cleanup := func() {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Error shutting down rate limiters")
		}
	}
	return &limiterSet{Limiters: limiters, Configs: cfgs}, cleanup, nil
}

func provideRouter(set *limiterSet, m *metrics.RateLimitMetrics, reg *prometheus.Registry) (http.Handler, error) {
	return newRouter(set, m, reg)
}
