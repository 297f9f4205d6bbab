package store

import "context"

// NoteStore persists notes.
type NoteStore interface {
	// CreateNote stores a new note. An empty ID is assigned.
	CreateNote(ctx context.Context, note *Note) error

	// GetNote returns the note with its spans ordered by start.
	GetNote(ctx context.Context, id string) (*Note, error)

	// DeleteNote removes the note and all of its spans.
	DeleteNote(ctx context.Context, id string) error
}

// SpanStore persists the spans of a note.
type SpanStore interface {
	// InsertSpansIfAbsent stores spans for a note only if no span set has
	// been stored for it yet. It returns the note's persisted spans and
	// whether this call inserted them. A losing concurrent caller gets the
	// winner's spans and false.
	InsertSpansIfAbsent(ctx context.Context, noteID string, spans []TextSpan) ([]TextSpan, bool, error)

	// ListSpans returns a note's spans ordered by start.
	ListSpans(ctx context.Context, noteID string) ([]TextSpan, error)
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, subjectID string) (*UserProfile, error)

	// GetOrCreateProfile returns the profile, creating an empty one if absent.
	GetOrCreateProfile(ctx context.Context, subjectID string) (*UserProfile, error)

	SaveProfile(ctx context.Context, profile *UserProfile) error
}

// Store is the full persistence surface.
type Store interface {
	NoteStore
	SpanStore
	ProfileStore
	Close() error
}
