package store

import "time"

// Note is a stored piece of free text with its sensitivity level.
type Note struct {
	ID               string     `json:"id"`
	Content          string     `json:"content"`
	SensitivityLevel int        `json:"sensitivity_level"`
	Spans            []TextSpan `json:"spans,omitempty"`

	// SpansMaterialized is set when a span set has been stored, including
	// an empty one.
	SpansMaterialized bool `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TextSpan is a labelled rune interval [Start, End) of a note's content.
// Spans are never updated; they are deleted with their note.
type TextSpan struct {
	ID         string    `json:"id"`
	NoteID     string    `json:"note_id"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserProfile carries per-user secondary-factor state. VoicePinHash is a
// base64 digest, never the PIN itself.
type UserProfile struct {
	SubjectID    string    `json:"subject_id"`
	VoicePinHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPin reports whether a PIN has been set.
func (p *UserProfile) HasPin() bool {
	return p != nil && p.VoicePinHash != ""
}
