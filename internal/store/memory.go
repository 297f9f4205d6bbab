package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and
// intended for tests and single-process deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	notes    map[string]*Note
	spans    map[string][]TextSpan // noteID -> spans
	spanSets map[string]bool       // noteIDs with a stored span set
	profiles map[string]*UserProfile
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notes:    make(map[string]*Note),
		spans:    make(map[string][]TextSpan),
		spanSets: make(map[string]bool),
		profiles: make(map[string]*UserProfile),
	}
}

// CreateNote stores a copy of note.
func (s *MemoryStore) CreateNote(ctx context.Context, note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	stored := *note
	stored.Spans = nil
	s.notes[note.ID] = &stored
	return nil
}

// GetNote returns a copy of the note and its spans.
func (s *MemoryStore) GetNote(ctx context.Context, id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *note
	result.Spans = copySpans(s.spans[id])
	result.SpansMaterialized = s.spanSets[id]
	return &result, nil
}

// DeleteNote removes the note and its spans.
func (s *MemoryStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return ErrNotFound
	}
	delete(s.notes, id)
	delete(s.spans, id)
	delete(s.spanSets, id)
	return nil
}

// InsertSpansIfAbsent implements SpanStore.
func (s *MemoryStore) InsertSpansIfAbsent(ctx context.Context, noteID string, spans []TextSpan) ([]TextSpan, bool, error) {
	prepared, err := prepareSpans(noteID, spans, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[noteID]; !ok {
		return nil, false, ErrNotFound
	}
	if s.spanSets[noteID] {
		return copySpans(s.spans[noteID]), false, nil
	}

	sortSpans(prepared)
	s.spans[noteID] = prepared
	s.spanSets[noteID] = true
	return copySpans(prepared), true, nil
}

// ListSpans implements SpanStore.
func (s *MemoryStore) ListSpans(ctx context.Context, noteID string) ([]TextSpan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.notes[noteID]; !ok {
		return nil, ErrNotFound
	}
	return copySpans(s.spans[noteID]), nil
}

// GetProfile returns a copy of the profile.
func (s *MemoryStore) GetProfile(ctx context.Context, subjectID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	result := *p
	return &result, nil
}

// GetOrCreateProfile implements ProfileStore.
func (s *MemoryStore) GetOrCreateProfile(ctx context.Context, subjectID string) (*UserProfile, error) {
	if subjectID == "" {
		return nil, ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[subjectID]
	if !ok {
		now := time.Now().UTC()
		p = &UserProfile{SubjectID: subjectID, CreatedAt: now, UpdatedAt: now}
		s.profiles[subjectID] = p
	}
	result := *p
	return &result, nil
}

// SaveProfile stores a copy of the profile, creating it if needed.
func (s *MemoryStore) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if profile.SubjectID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	stored := *profile
	s.profiles[profile.SubjectID] = &stored
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func copySpans(spans []TextSpan) []TextSpan {
	out := make([]TextSpan, len(spans))
	copy(out, spans)
	return out
}
