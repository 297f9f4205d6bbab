// Package events publishes redaction lifecycle events. Events carry
// identifiers and counts only, never note content.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects, relative to the configured prefix.
const (
	SubjectSpansMaterialized = "spans.materialized"
	SubjectDisclosure        = "notes.disclosure"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "redactd"

// SpansMaterialized is published when a note's span set is first persisted.
type SpansMaterialized struct {
	NoteID  string    `json:"note_id"`
	Total   int       `json:"total"`
	PII     int       `json:"pii"`
	Secrets int       `json:"secrets"`
	At      time.Time `json:"at"`
}

// Disclosure is published for every full-disclosure attempt.
type Disclosure struct {
	NoteID  string    `json:"note_id"`
	UserID  string    `json:"user_id"`
	Granted bool      `json:"granted"`
	At      time.Time `json:"at"`
}

// Publisher emits events.
type Publisher interface {
	SpansMaterialized(ctx context.Context, ev SpansMaterialized) error
	Disclosure(ctx context.Context, ev Disclosure) error
	Close()
}

// Config configures event publishing. An empty NATSURL disables it.
type Config struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// New connects to NATS, or returns a Noop publisher when disabled.
func New(cfg Config, logger *zap.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("redactd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	logger.Info("connected to NATS", zap.String("url", cfg.NATSURL))

	p := NewNATSPublisher(nc, cfg.SubjectPrefix)
	p.owned = true
	return p, nil
}

// NATSPublisher publishes JSON events to NATS core subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSPublisher wraps an existing connection. The caller keeps ownership
// of nc.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject returns the full subject name for a relative subject.
func (p *NATSPublisher) Subject(name string) string {
	return p.prefix + "." + name
}

// SpansMaterialized implements Publisher.
func (p *NATSPublisher) SpansMaterialized(ctx context.Context, ev SpansMaterialized) error {
	return p.publish(SubjectSpansMaterialized, ev)
}

// Disclosure implements Publisher.
func (p *NATSPublisher) Disclosure(ctx context.Context, ev Disclosure) error {
	return p.publish(SubjectDisclosure, ev)
}

func (p *NATSPublisher) publish(name string, ev any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if err := p.nc.Publish(p.Subject(name), data); err != nil {
		return fmt.Errorf("publish %s event: %w", name, err)
	}
	return nil
}

// Close drains the connection if the publisher opened it.
func (p *NATSPublisher) Close() {
	if p.owned {
		_ = p.nc.Drain()
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) SpansMaterialized(context.Context, SpansMaterialized) error { return nil }
func (Noop) Disclosure(context.Context, Disclosure) error               { return nil }
func (Noop) Close()                                                     {}
