package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"learn.slidingwindow/types"
)

// AlgorithmType represents the type of rate limiting algorithm.
type AlgorithmType string

const (
	SlidingWindowLog AlgorithmType = "sliding_window_log"
)

// BackendType represents the storage backend.
type BackendType string

const (
	InMemory BackendType = "in_memory"
)

// IdentifierType selects how the rate limit key is derived from a request.
type IdentifierType string

const (
	ClientIP        IdentifierType = "client_ip"
	ClientIPAndPath IdentifierType = "client_ip_path"
	UserOrClientIP  IdentifierType = "user_or_client_ip"
)

const (
	DefaultPathPrefix = "/"
	DefaultMessage    = "Too many requests, please try again later."
	DefaultRetention  = 10 * time.Minute
	DefaultInterval   = time.Minute
)

// LimiterConfig holds the configuration for a single rate limiter instance.
type LimiterConfig struct {
	Key        string         `yaml:"key"`
	Algorithm  AlgorithmType  `yaml:"algorithm"`
	Backend    BackendType    `yaml:"backend"`
	Identifier IdentifierType `yaml:"identifier"`
	PathPrefix string         `yaml:"path_prefix,omitempty"`

	WindowParams     *WindowConfig     `yaml:"window_params,omitempty"`
	CompactionParams *CompactionConfig `yaml:"compaction_params,omitempty"`
	Response         *ResponseConfig   `yaml:"response,omitempty"`
}

// WindowConfig holds the window length and request cap of a policy.
type WindowConfig struct {
	Window time.Duration `yaml:"window"`
	Limit  int64         `yaml:"limit"`
}

// CompactionConfig controls how idle keys are reclaimed from the store.
type CompactionConfig struct {
	Retention time.Duration `yaml:"retention"`
	Interval  time.Duration `yaml:"interval"`
}

// ResponseConfig controls the rejection returned to clients over the limit.
type ResponseConfig struct {
	StatusCode int    `yaml:"status_code"`
	Message    string `yaml:"message"`
}

// ApplyDefaults fills optional fields left empty in the file.
func (c *LimiterConfig) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = SlidingWindowLog
	}
	if c.Backend == "" {
		c.Backend = InMemory
	}
	if c.Identifier == "" {
		c.Identifier = ClientIP
	}
	if c.PathPrefix == "" {
		c.PathPrefix = DefaultPathPrefix
	}
	if c.CompactionParams == nil {
		c.CompactionParams = &CompactionConfig{}
	}
	if c.CompactionParams.Retention == 0 {
		c.CompactionParams.Retention = DefaultRetention
	}
	if c.CompactionParams.Interval == 0 {
		c.CompactionParams.Interval = DefaultInterval
	}
	if c.Response == nil {
		c.Response = &ResponseConfig{}
	}
	if c.Response.StatusCode == 0 {
		c.Response.StatusCode = http.StatusTooManyRequests
	}
	if c.Response.Message == "" {
		c.Response.Message = DefaultMessage
	}
}

// Validate reports the first problem found in the configuration. Every error wraps types.ErrInvalidConfig.
func (c LimiterConfig) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return invalid("limiter configuration missing 'key' field")
	}
	switch c.Algorithm {
	case SlidingWindowLog:
	default:
		return invalid("limiter '%s': unsupported algorithm type '%s'", c.Key, c.Algorithm)
	}
	switch c.Backend {
	case InMemory:
	default:
		return invalid("limiter '%s': unsupported backend type '%s'", c.Key, c.Backend)
	}
	switch c.Identifier {
	case ClientIP, ClientIPAndPath, UserOrClientIP:
	default:
		return invalid("limiter '%s': unsupported identifier '%s'", c.Key, c.Identifier)
	}
	if !strings.HasPrefix(c.PathPrefix, "/") {
		return invalid("limiter '%s': path_prefix must start with '/', got '%s'", c.Key, c.PathPrefix)
	}
	if c.WindowParams == nil {
		return invalid("limiter '%s': window_params are missing", c.Key)
	}
	if c.WindowParams.Window <= 0 {
		return invalid("limiter '%s': window must be positive, got %s", c.Key, c.WindowParams.Window)
	}
	if c.WindowParams.Limit <= 0 {
		return invalid("limiter '%s': limit must be positive, got %d", c.Key, c.WindowParams.Limit)
	}
	if c.CompactionParams != nil {
		if c.CompactionParams.Retention <= 0 {
			return invalid("limiter '%s': retention must be positive, got %s", c.Key, c.CompactionParams.Retention)
		}
		if c.CompactionParams.Interval <= 0 {
			return invalid("limiter '%s': compaction interval must be positive, got %s", c.Key, c.CompactionParams.Interval)
		}
		if c.CompactionParams.Retention <= c.WindowParams.Window {
			return invalid("limiter '%s': retention %s must exceed window %s", c.Key, c.CompactionParams.Retention, c.WindowParams.Window)
		}
	}
	if c.Response != nil && (c.Response.StatusCode < 400 || c.Response.StatusCode > 599) {
		return invalid("limiter '%s': status_code must be a 4xx or 5xx code, got %d", c.Key, c.Response.StatusCode)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
