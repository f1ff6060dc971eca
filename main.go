// Package main is the entry point for the rate limiter application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"learn.slidingwindow/config"
)

// main parses flags and environment, wires the rate limiters and serves HTTP until interrupted.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	settings, err := config.LoadServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid environment configuration")
	}

	// Flags override the environment.
	flag.IntVar(&settings.Port, "p", settings.Port, "Port to run the HTTP server on")
	flag.StringVar(&settings.ConfigPath, "config", settings.ConfigPath, "Path to the configuration file")
	flag.StringVar(&settings.LogLevel, "log-level", settings.LogLevel, "Logging level (trace, debug, info, warn, error, fatal, panic)")
	flag.Parse()

	logLevel, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", settings.LogLevel).Msg("Invalid log level provided")
	}
	zerolog.SetGlobalLevel(logLevel)

	if err := run(settings); err != nil {
		log.Fatal().Err(err).Msg("Application stopped with error")
	}
	log.Info().Msg("Application stopped")
}

func run(settings config.ServerConfig) error {
	log.Info().Str("config_path", settings.ConfigPath).Msg("Starting application initialization")

	app, cleanup, err := InitializeApplication(settings)
	if err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}
	defer cleanup()

	log.Info().Int("limiters", len(app.Limiters.Limiters)).Msg("All rate limiters successfully initialized")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Settings.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Dur("timeout", app.Settings.ShutdownTimeout).Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Settings.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
