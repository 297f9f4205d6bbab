package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/redactd/internal/config"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate(), "disabled config is valid")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"no service", func(c *Config) { c.ServiceName = "" }, "service_name is required"},
		{"insecure remote", func(c *Config) { c.Endpoint = "collector.example.com:4318" }, "insecure export"},
		{"rate too high", func(c *Config) { c.SampleRate = 1.5 }, "sample rate"},
		{"zero interval", func(c *Config) { c.MetricsInterval = 0 }, "metrics interval"},
		{"zero shutdown", func(c *Config) { c.ShutdownTimeout = 0 }, "shutdown timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("secure remote", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Enabled = true
		cfg.Insecure = false
		cfg.Endpoint = "collector.example.com:4318"
		assert.NoError(t, cfg.Validate())
	})
}

func TestIsLocalEndpoint(t *testing.T) {
	local := []string{"localhost:4318", "127.0.0.1:4318", "127.8.0.1:4318", "[::1]:4318", "::1", "localhost"}
	for _, e := range local {
		assert.True(t, isLocalEndpoint(e), e)
	}
	remote := []string{"otel.internal:4318", "10.0.0.5:4318", "localhost.evil.com:4318", "[2001:db8::1]:4318"}
	for _, e := range remote {
		assert.False(t, isLocalEndpoint(e), e)
	}
}

func TestFromObservability(t *testing.T) {
	cfg := FromObservability(config.ObservabilityConfig{
		EnableTelemetry: true,
		ServiceName:     "redactd-eu",
		OTLPEndpoint:    "http://localhost:14318",
		Insecure:        true,
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "redactd-eu", cfg.ServiceName)
	assert.Equal(t, "localhost:14318", cfg.Endpoint)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 15*time.Second, cfg.MetricsInterval.Duration())
	require.NoError(t, cfg.Validate())
}
