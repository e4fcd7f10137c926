package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lab-insight-server/internal/domain"
)

// Manager loads and validates application configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/lab-insight-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("LAB_INSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Inference service defaults. Endpoint and credentials have no
	// defaults; an unconfigured service falls back to local results.
	viper.SetDefault("inference.base_url", "")
	viper.SetDefault("inference.deployment", "")
	viper.SetDefault("inference.prediction_url", "")
	viper.SetDefault("inference.api_key", "")
	viper.SetDefault("inference.auth_mode", "basic")
	viper.SetDefault("inference.token_url", "")
	viper.SetDefault("inference.request_mode", "auto")
	viper.SetDefault("inference.timeout", "60s")
	viper.SetDefault("inference.cache_size", 256)
	viper.SetDefault("inference.cache_ttl", "10m")
	viper.SetDefault("inference.breaker.max_requests", 3)
	viper.SetDefault("inference.breaker.interval", "60s")
	viper.SetDefault("inference.breaker.timeout", "30s")

	// Reference range table defaults to the built-in table
	viper.SetDefault("ranges.file", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetInferenceConfig returns inference service configuration
func (m *Manager) GetInferenceConfig() *domain.InferenceConfig {
	return &m.config.Inference
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate inference configuration. An unconfigured service is legal
	// (local fallback), but partial settings must be coherent.
	inf := config.Inference
	switch inf.AuthMode {
	case "basic", "token":
	default:
		return fmt.Errorf("invalid inference auth mode: %s", inf.AuthMode)
	}
	if inf.AuthMode == "token" && inf.IsConfigured() && inf.TokenURL == "" {
		return fmt.Errorf("inference token auth requires a token URL")
	}
	switch inf.RequestMode {
	case "auto", "chat", "completion":
	default:
		return fmt.Errorf("invalid inference request mode: %s", inf.RequestMode)
	}
	if inf.Timeout <= 0 {
		return fmt.Errorf("inference timeout must be positive")
	}
	if inf.CacheSize <= 0 {
		return fmt.Errorf("inference cache size must be positive")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
