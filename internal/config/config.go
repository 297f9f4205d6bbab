// Package config loads redactd configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/redactd/internal/events"
	"github.com/fyrsmithlabs/redactd/internal/pii"
	"github.com/fyrsmithlabs/redactd/internal/pin"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
	"github.com/fyrsmithlabs/redactd/internal/store"
)

// Config is the complete redactd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Store         store.Config        `koanf:"store"`
	Secrets       secrets.Config      `koanf:"secrets"`
	PII           pii.Config          `koanf:"pii"`
	Pin           PinConfig           `koanf:"pin"`
	Events        events.Config       `koanf:"events"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	BodyLimit       string   `koanf:"body_limit"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PinConfig holds PIN guard settings.
type PinConfig struct {
	Salt           Secret   `koanf:"salt"`
	VerifyBurst    int      `koanf:"verify_burst"`
	VerifyInterval Duration `koanf:"verify_interval"`
}

// Guard converts the section to the guard's own config.
func (p PinConfig) Guard() pin.Config {
	return pin.Config{
		Salt:           p.Salt.Value(),
		VerifyBurst:    p.VerifyBurst,
		VerifyInterval: p.VerifyInterval.Duration(),
	}
}

// ObservabilityConfig holds OpenTelemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	Insecure        bool   `koanf:"insecure"`
}

// LoggingConfig holds the logger level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "2M"
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = store.DriverSQLite
	}
	if cfg.Store.Driver == store.DriverSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = "~/.config/redactd/redactd.db"
	}

	if cfg.Secrets.MaxInputBytes == 0 {
		cfg.Secrets.MaxInputBytes = secrets.DefaultMaxInputBytes
	}

	if cfg.PII.Provider == "" {
		cfg.PII.Provider = pii.ProviderBuiltin
	}
	if cfg.PII.Provider == pii.ProviderHTTP && cfg.PII.Timeout == 0 {
		cfg.PII.Timeout = 10 * time.Second
	}

	defaults := pin.DefaultConfig()
	if !cfg.Pin.Salt.IsSet() {
		cfg.Pin.Salt = Secret(defaults.Salt)
	}
	if cfg.Pin.VerifyBurst == 0 {
		cfg.Pin.VerifyBurst = defaults.VerifyBurst
	}
	if cfg.Pin.VerifyInterval == 0 {
		cfg.Pin.VerifyInterval = Duration(defaults.VerifyInterval)
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = events.DefaultSubjectPrefix
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "redactd"
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4318"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	secretsCfg := c.Secrets
	if err := secretsCfg.Validate(); err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	if err := c.PII.Validate(); err != nil {
		return fmt.Errorf("pii: %w", err)
	}

	if c.Pin.VerifyInterval < 0 {
		return errors.New("pin: verify_interval cannot be negative")
	}

	if c.Observability.EnableTelemetry {
		if c.Observability.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Observability.OTLPEndpoint == "" {
			return errors.New("otlp endpoint required when telemetry is enabled")
		}
	}

	if !logLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging: format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
