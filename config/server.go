package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// DotEnvFile is read, when present, before the environment is processed.
const DotEnvFile = ".env"

// ServerConfig holds process-level settings read from the environment.
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"3000"`
	ConfigPath      string        `envconfig:"CONFIG_PATH" default:"config.yaml"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadServerConfig reads RATELIMITER_* variables, after loading an optional .env file.
// A malformed .env file is logged and skipped.
func LoadServerConfig() (ServerConfig, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		log.Warn().Err(err).Str("path", DotEnvFile).Msg("Config: Ignoring unreadable .env file")
	}

	var cfg ServerConfig
	if err := envconfig.Process("ratelimiter", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}
