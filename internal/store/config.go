package store

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config selects and configures the store backend.
type Config struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
}

// Open creates the store selected by cfg.
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Driver == DriverMemory {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(cfg.Path, logger)
}
