package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Inference InferenceConfig `mapstructure:"inference"`
	Ranges    RangesConfig    `mapstructure:"ranges"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// InferenceConfig represents the external inference service configuration.
// The service is considered configured when either PredictionURL is set, or
// BaseURL, Deployment and APIKey are all set.
type InferenceConfig struct {
	// Endpoint resolution
	BaseURL       string `mapstructure:"base_url"`
	Deployment    string `mapstructure:"deployment"`
	PredictionURL string `mapstructure:"prediction_url"`

	// Authentication. AuthMode "basic" sends the API key as HTTP basic
	// credentials; "token" exchanges it at TokenURL for a bearer token.
	APIKey   string `mapstructure:"api_key"`
	AuthMode string `mapstructure:"auth_mode"`
	TokenURL string `mapstructure:"token_url"`

	// RequestMode overrides payload-shape selection: auto, chat, completion.
	RequestMode string `mapstructure:"request_mode"`

	Timeout time.Duration `mapstructure:"timeout"`

	// Normalized-result cache (keyed by prompt hash).
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`

	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig represents circuit breaker settings for the inference
// transport.
type BreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RangesConfig points at the reference-range table. When File is empty the
// built-in default table is used.
type RangesConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// IsConfigured reports whether the inference service has a usable endpoint
// and credentials. An unconfigured service short-circuits to local fallback
// without any network I/O.
func (c *InferenceConfig) IsConfigured() bool {
	if c.PredictionURL != "" {
		return true
	}
	return c.BaseURL != "" && c.Deployment != "" && c.APIKey != ""
}
