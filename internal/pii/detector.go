// Package pii provides the personal-data detectors consumed by span
// materialization. Deciding what counts as PII is left to the detector;
// callers trust its findings as given.
package pii

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Finding is one PII occurrence. Start and End are rune offsets.
type Finding struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Detector finds PII in text.
type Detector interface {
	DetectPII(ctx context.Context, text string) ([]Finding, error)
}

// Providers.
const (
	ProviderBuiltin = "builtin"
	ProviderHTTP    = "http"
	ProviderNone    = "none"
)

// Config selects the PII detector.
type Config struct {
	Provider string        `koanf:"provider"`
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderBuiltin, ProviderNone:
		return nil
	case ProviderHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("pii.endpoint is required for the http provider")
		}
		if c.Timeout < 0 {
			return fmt.Errorf("pii.timeout cannot be negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown pii provider %q", c.Provider)
	}
}

// New returns the detector selected by cfg.
func New(cfg Config, logger *zap.Logger) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderHTTP:
		return NewHTTPDetector(cfg.Endpoint, cfg.Timeout, logger), nil
	case ProviderNone:
		return Noop{}, nil
	default:
		return NewPatternDetector(), nil
	}
}

// Noop finds nothing.
type Noop struct{}

// DetectPII implements Detector.
func (Noop) DetectPII(context.Context, string) ([]Finding, error) {
	return []Finding{}, nil
}

// validFindings drops findings that do not fit a text of n runes.
func validFindings(findings []Finding, n int) []Finding {
	out := findings[:0]
	for _, f := range findings {
		if f.Start < 0 || f.End > n || f.Start >= f.End || f.Type == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
