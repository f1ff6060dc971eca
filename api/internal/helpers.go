package internal

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"learn.slidingwindow/config"
)

// ConfigFile represents the top-level structure of the configuration file.
type ConfigFile struct {
	Limiters []config.LimiterConfig `yaml:"limiters"`
}

// LoadConfig reads and unmarshals the YAML config.
// Defaults are applied and every limiter is validated, so a bad policy fails here rather than on first use.
func LoadConfig(path string) (*ConfigFile, error) {
	log.Info().Str("config_path", path).Msg("Loading configuration")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	log.Info().Str("config_path", path).Int("limiters", len(cfg.Limiters)).Msg("Configuration loaded successfully")
	return cfg, nil
}

// ParseConfig unmarshals, defaults and validates a YAML document.
func ParseConfig(data []byte) (*ConfigFile, error) {
	var cfg ConfigFile
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Limiters))
	for i := range cfg.Limiters {
		cfg.Limiters[i].ApplyDefaults()
		if err := cfg.Limiters[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[cfg.Limiters[i].Key]; dup {
			return nil, fmt.Errorf("duplicate limiter key '%s'", cfg.Limiters[i].Key)
		}
		seen[cfg.Limiters[i].Key] = struct{}{}
	}
	return &cfg, nil
}
