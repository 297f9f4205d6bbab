// Package notes exposes the redaction operations over stored notes.
package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/redactd/internal/events"
	"github.com/fyrsmithlabs/redactd/internal/pin"
	"github.com/fyrsmithlabs/redactd/internal/redaction"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
	"github.com/fyrsmithlabs/redactd/internal/spans"
	"github.com/fyrsmithlabs/redactd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/redactd/internal/notes"

// Preview is a masked rendering of a note.
type Preview struct {
	NoteID           string           `json:"note_id"`
	MaskedText       string           `json:"masked_text"`
	Spans            []store.TextSpan `json:"spans"`
	SensitivityLevel int              `json:"sensitivity_level"`
	Policy           string           `json:"policy"`
}

// Service implements the note redaction operations.
type Service struct {
	notes        store.NoteStore
	materializer *spans.Materializer
	guard        *pin.Guard
	engine       *secrets.Engine
	events       events.Publisher
	logger       *zap.Logger
	tracer       trace.Tracer
}

// NewService creates the service. A nil publisher discards events.
func NewService(notes store.NoteStore, m *spans.Materializer, g *pin.Guard, eng *secrets.Engine, pub events.Publisher, logger *zap.Logger) (*Service, error) {
	if notes == nil {
		return nil, errors.New("note store is required")
	}
	if m == nil {
		return nil, errors.New("span materializer is required")
	}
	if g == nil {
		return nil, errors.New("pin guard is required")
	}
	if eng == nil {
		return nil, errors.New("secret engine is required")
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		notes:        notes,
		materializer: m,
		guard:        g,
		engine:       eng,
		events:       pub,
		logger:       logger,
		tracer:       otel.Tracer(instrumentationName),
	}, nil
}

// CreateNote stores a new note.
func (s *Service) CreateNote(ctx context.Context, content string, level int) (*store.Note, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !redaction.ValidLevel(level) {
		return nil, ErrInvalidSensitivity
	}

	note := &store.Note{Content: content, SensitivityLevel: level}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.logger.Info("note created",
		zap.String("note.id", note.ID),
		zap.Int("sensitivity_level", level),
	)
	return note, nil
}

// GetNote returns a stored note with its spans.
func (s *Service) GetNote(ctx context.Context, id string) (*store.Note, error) {
	if id == "" {
		return nil, ErrEmptyNoteID
	}
	note, err := s.notes.GetNote(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// DeleteNote removes a note and its spans.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyNoteID
	}
	err := s.notes.DeleteNote(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	s.logger.Info("note deleted", zap.String("note.id", id))
	return nil
}

// PreviewRedaction renders the note masked at the stricter of its own
// level and the level named by policyName. An empty policyName uses the
// note's level; an unknown name is treated as Confidential.
func (s *Service) PreviewRedaction(ctx context.Context, noteID, policyName string) (*Preview, error) {
	ctx, span := s.tracer.Start(ctx, "notes.PreviewRedaction")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", noteID))

	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "note lookup failed")
		return nil, err
	}

	level := note.SensitivityLevel
	if policyName != "" {
		named, ok := redaction.PolicyByName(policyName)
		if !ok {
			s.logger.Debug("unknown policy name", zap.String("policy", policyName))
		}
		level = max(level, named.Level)
	}
	policy := redaction.ForLevel(level)
	span.SetAttributes(attribute.String("policy", policy.Name))

	noteSpans := s.materializer.EnsureSpans(ctx, note)
	masked := redaction.Apply(note.Content, policy, spans.ToRedaction(noteSpans))

	return &Preview{
		NoteID:           note.ID,
		MaskedText:       masked,
		Spans:            noteSpans,
		SensitivityLevel: note.SensitivityLevel,
		Policy:           policy.Name,
	}, nil
}

// RedactText masks text at level. It never fails.
func (s *Service) RedactText(text string, level int, spans []redaction.Span) string {
	return redaction.Redact(text, level, spans)
}

// SetVoicePin stores the user's PIN.
func (s *Service) SetVoicePin(ctx context.Context, pin, userID string) error {
	return s.guard.SetPin(ctx, userID, pin)
}

// VerifyVoicePin checks the user's PIN. It never fails.
func (s *Service) VerifyVoicePin(ctx context.Context, pin, userID string) bool {
	return s.guard.VerifyPin(ctx, userID, pin)
}

// ScanText runs secret detection over text.
func (s *Service) ScanText(ctx context.Context, text string) (*secrets.Report, error) {
	ctx, span := s.tracer.Start(ctx, "notes.ScanText")
	defer span.End()

	report, err := s.engine.Scan(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("detections", len(report.Detections)))
	return report, nil
}

// Disclose returns a note's raw content. Notes whose policy requires a PIN
// are disclosed only to a user whose PIN verifies; otherwise ErrPinRejected.
func (s *Service) Disclose(ctx context.Context, noteID, userID, pinValue string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "notes.Disclose")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", noteID))

	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "note lookup failed")
		return "", err
	}

	policy := redaction.ForLevel(note.SensitivityLevel)
	if !policy.RequirePIN {
		return note.Content, nil
	}

	granted := userID != "" && s.guard.VerifyPin(ctx, userID, pinValue)
	ev := events.Disclosure{NoteID: note.ID, UserID: userID, Granted: granted, At: time.Now().UTC()}
	if err := s.events.Disclosure(ctx, ev); err != nil {
		s.logger.Warn("failed to publish disclosure event", zap.Error(err))
	}

	if !granted {
		s.logger.Warn("disclosure denied",
			zap.String("note.id", note.ID),
			zap.String("user.id", userID),
		)
		span.SetStatus(codes.Error, "pin rejected")
		return "", ErrPinRejected
	}

	s.logger.Info("note disclosed",
		zap.String("note.id", note.ID),
		zap.String("user.id", userID),
	)
	return note.Content, nil
}
