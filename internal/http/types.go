package http

import (
	"time"

	"github.com/fyrsmithlabs/redactd/internal/redaction"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// CreateNoteRequest is the body of POST /api/v1/notes.
type CreateNoteRequest struct {
	Content          string `json:"content"`
	SensitivityLevel int    `json:"sensitivity_level"`
}

// NoteResponse describes a stored note without its content.
type NoteResponse struct {
	ID               string    `json:"id"`
	SensitivityLevel int       `json:"sensitivity_level"`
	CreatedAt        time.Time `json:"created_at"`
}

// DiscloseRequest is the body of POST /api/v1/notes/:id/disclose.
type DiscloseRequest struct {
	UserID string `json:"user_id"`
	Pin    string `json:"pin"`
}

// DiscloseResponse carries a note's raw content.
type DiscloseResponse struct {
	NoteID  string `json:"note_id"`
	Content string `json:"content"`
}

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	Content string `json:"content"`
}

// ScanResponse lists detections with masked values only.
type ScanResponse struct {
	Detections []secrets.Detection `json:"detections"`
	Summary    string              `json:"summary"`
}

// RedactRequest is the body of POST /api/v1/redact.
type RedactRequest struct {
	Text             string           `json:"text"`
	SensitivityLevel int              `json:"sensitivity_level"`
	Spans            []redaction.Span `json:"spans"`
}

// RedactResponse carries masked text.
type RedactResponse struct {
	Text string `json:"text"`
}

// PinRequest is the body of the voice-pin endpoints.
type PinRequest struct {
	Pin string `json:"pin"`
}

// VerifyResponse reports the outcome of a PIN check.
type VerifyResponse struct {
	Verified bool `json:"verified"`
}
