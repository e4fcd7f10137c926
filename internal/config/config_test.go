package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "basic", cfg.Inference.AuthMode)
	assert.Equal(t, "auto", cfg.Inference.RequestMode)
	assert.Equal(t, 60*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 256, cfg.Inference.CacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Inference.CacheTTL)
	assert.Equal(t, uint32(3), cfg.Inference.Breaker.MaxRequests)

	// Unconfigured endpoint by default, which is legal.
	assert.False(t, cfg.Inference.IsConfigured())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestManagerValidate(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	// Defaults must validate.
	require.NoError(t, m.Validate())

	tests := []struct {
		name   string
		mutate func()
	}{
		{"Invalid port", func() { m.config.Server.Port = 0 }},
		{"Invalid auth mode", func() { m.config.Inference.AuthMode = "oauth2" }},
		{"Invalid request mode", func() { m.config.Inference.RequestMode = "grpc" }},
		{"Zero timeout", func() { m.config.Inference.Timeout = 0 }},
		{"Zero cache size", func() { m.config.Inference.CacheSize = 0 }},
		{"Invalid log level", func() { m.config.Logging.Level = "verbose" }},
		{"Token mode without token URL", func() {
			m.config.Inference.AuthMode = "token"
			m.config.Inference.PredictionURL = "https://ml.example.com/predict"
			m.config.Inference.TokenURL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.Reload())
			require.NoError(t, m.Validate())
			tt.mutate()
			assert.Error(t, m.Validate())
		})
	}
}
