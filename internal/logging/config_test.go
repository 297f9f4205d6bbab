package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, "redactd", cfg.Fields["service"])
	assert.True(t, cfg.Redaction.Enabled)
	for _, f := range []string{"pin", "password", "secret", "token", "content"} {
		assert.Contains(t, cfg.Redaction.Fields, f)
	}
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings("", "")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.True(t, cfg.Sampling.Enabled)

	cfg, err = FromSettings("debug", "console")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, FormatConsole, cfg.Format)
	assert.False(t, cfg.Sampling.Enabled, "debug disables sampling")

	_, err = FromSettings("loud", "")
	assert.Error(t, err)

	_, err = FromSettings("info", "xml")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad format", func(c *Config) { c.Format = "logfmt" }, "format must be"},
		{"no outputs", func(c *Config) { c.Output = OutputConfig{} }, "at least one output"},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }, "sampling tick"},
		{"zero initial", func(c *Config) { c.Sampling.Initial = 0 }, "sampling initial"},
		{"negative caller skip", func(c *Config) { c.Caller.Skip = -1 }, "caller skip"},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }, "invalid redaction pattern"},
		{"long pattern", func(c *Config) { c.Redaction.Patterns = []string{strings.Repeat("a", 201)} }, "too long"},
		{"empty field key", func(c *Config) { c.Fields[""] = "x" }, "field key"},
		{"empty field value", func(c *Config) { c.Fields["env"] = "" }, "empty value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("sampling disabled ignores tick", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Sampling.Enabled = false
		cfg.Sampling.Tick = 0
		assert.NoError(t, cfg.Validate())
	})
}
