package secrets

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxInputBytes bounds the text accepted by a single scan (1MB).
	DefaultMaxInputBytes = 1 << 20
)

// Config configures the detection engine.
type Config struct {
	// RuleTimeout bounds each rule's evaluation. Zero evaluates rules inline
	// without a deadline.
	RuleTimeout time.Duration `koanf:"rule_timeout"`

	// MaxInputBytes rejects larger inputs with ErrInputTooLarge (0 = default).
	MaxInputBytes int `koanf:"max_input_bytes"`

	// AllowListFile is an optional TOML file with extra placeholder values.
	AllowListFile string `koanf:"allowlist_file"`

	// GitleaksEnabled adds the gitleaks default rule pack as an extended scanner.
	GitleaksEnabled bool `koanf:"gitleaks_enabled"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		RuleTimeout:   0,
		MaxInputBytes: DefaultMaxInputBytes,
	}
}

// Validate checks the configuration and fills zero values.
func (c *Config) Validate() error {
	if c.RuleTimeout < 0 {
		return fmt.Errorf("rule_timeout cannot be negative: %s", c.RuleTimeout)
	}
	if c.MaxInputBytes < 0 {
		return fmt.Errorf("max_input_bytes cannot be negative: %d", c.MaxInputBytes)
	}
	if c.MaxInputBytes == 0 {
		c.MaxInputBytes = DefaultMaxInputBytes
	}
	return nil
}
