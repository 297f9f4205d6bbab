// Package spans turns PII findings and secret detections into the persisted
// text spans of a note.
package spans

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/redactd/internal/events"
	"github.com/fyrsmithlabs/redactd/internal/pii"
	"github.com/fyrsmithlabs/redactd/internal/redaction"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
	"github.com/fyrsmithlabs/redactd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/redactd/internal/spans"

// SecretDetector finds secrets in text. *secrets.Engine implements it.
type SecretDetector interface {
	Detect(ctx context.Context, text string) ([]secrets.Detection, error)
}

// Materializer computes and persists a note's spans on first use.
type Materializer struct {
	pii     pii.Detector
	secrets SecretDetector
	store   store.SpanStore
	events  events.Publisher
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewMaterializer creates a materializer. A nil publisher discards events.
func NewMaterializer(piiDetector pii.Detector, secretDetector SecretDetector, st store.SpanStore, pub events.Publisher, logger *zap.Logger) (*Materializer, error) {
	if piiDetector == nil {
		return nil, errors.New("pii detector is required")
	}
	if secretDetector == nil {
		return nil, errors.New("secret detector is required")
	}
	if st == nil {
		return nil, errors.New("span store is required")
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{
		pii:     piiDetector,
		secrets: secretDetector,
		store:   st,
		events:  pub,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
	}, nil
}

// EnsureSpans returns the note's spans, computing and persisting them when
// no span set has been stored yet. A stored empty set is final. It never
// fails: detection and persistence problems are logged and the best spans
// available for this call are returned. Spans are persisted only when every
// detector succeeded, so a later call retries.
func (m *Materializer) EnsureSpans(ctx context.Context, note *store.Note) []store.TextSpan {
	if note.SpansMaterialized || len(note.Spans) > 0 {
		out := make([]store.TextSpan, len(note.Spans))
		copy(out, note.Spans)
		return out
	}

	ctx, span := m.tracer.Start(ctx, "spans.EnsureSpans")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", note.ID))

	logger := m.logger.With(zap.String("note.id", note.ID))
	complete := true

	findings, err := m.pii.DetectPII(ctx, note.Content)
	if err != nil {
		complete = false
		findings = nil
		logger.Warn("pii detection failed", zap.Error(err))
	}

	detections, err := m.secrets.Detect(ctx, note.Content)
	if err != nil {
		complete = false
		detections = nil
		logger.Warn("secret detection failed", zap.Error(err))
	}

	computed := Build(note.ID, findings, detections)
	piiCount, secretCount := countCategories(computed)
	SpansCreated.WithLabelValues("pii").Add(float64(piiCount))
	SpansCreated.WithLabelValues("secret").Add(float64(secretCount))
	span.SetAttributes(
		attribute.Int("spans.pii", piiCount),
		attribute.Int("spans.secret", secretCount),
	)

	if !complete {
		MaterializationsTotal.WithLabelValues("skipped").Inc()
		return computed
	}

	stored, inserted, err := m.store.InsertSpansIfAbsent(ctx, note.ID, computed)
	if err != nil {
		MaterializationsTotal.WithLabelValues("error").Inc()
		logger.Warn("failed to persist spans", zap.Error(err))
		return computed
	}
	if !inserted {
		MaterializationsTotal.WithLabelValues("raced").Inc()
		logger.Debug("span set already materialized")
		return stored
	}

	MaterializationsTotal.WithLabelValues("persisted").Inc()
	logger.Debug("spans materialized",
		zap.Int("pii", piiCount),
		zap.Int("secrets", secretCount),
	)

	ev := events.SpansMaterialized{
		NoteID:  note.ID,
		Total:   len(stored),
		PII:     piiCount,
		Secrets: secretCount,
		At:      time.Now().UTC(),
	}
	if err := m.events.SpansMaterialized(ctx, ev); err != nil {
		logger.Warn("failed to publish spans event", zap.Error(err))
	}
	return stored
}

// Build maps PII findings and secret detections to start-ordered spans.
// PII spans keep the detector's confidence; secret spans take the
// confidence of their severity.
func Build(noteID string, findings []pii.Finding, detections []secrets.Detection) []store.TextSpan {
	out := make([]store.TextSpan, 0, len(findings)+len(detections))
	for _, f := range findings {
		out = append(out, store.TextSpan{
			NoteID:     noteID,
			Start:      f.Start,
			End:        f.End,
			Label:      redaction.PrefixPII + strings.ToUpper(f.Type),
			Confidence: f.Confidence,
		})
	}
	for _, d := range detections {
		out = append(out, store.TextSpan{
			NoteID:     noteID,
			Start:      d.Start,
			End:        d.End,
			Label:      redaction.PrefixSecret + strings.ToUpper(d.Type),
			Confidence: d.Severity.Confidence(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// ToRedaction converts stored spans to mask-engine spans.
func ToRedaction(spans []store.TextSpan) []redaction.Span {
	out := make([]redaction.Span, len(spans))
	for i, s := range spans {
		out[i] = redaction.Span{Start: s.Start, End: s.End, Label: s.Label}
	}
	return out
}

func countCategories(spans []store.TextSpan) (piiCount, secretCount int) {
	for _, s := range spans {
		switch {
		case strings.HasPrefix(s.Label, redaction.PrefixPII):
			piiCount++
		case strings.HasPrefix(s.Label, redaction.PrefixSecret):
			secretCount++
		}
	}
	return piiCount, secretCount
}
