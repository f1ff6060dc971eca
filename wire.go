//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"learn.slidingwindow/config"
)

// InitializeApplication tells Wire which components to build for the server.
func InitializeApplication(settings config.ServerConfig) (*application, func(), error) {
	wire.Build(
		provideRegistry,
		provideMetrics,
		provideLimiters,
		provideRouter,
		wire.Struct(new(application), "*"),
	)
	return nil, nil, nil // This return is only for Wire's analysis
}
