package notes

import "errors"

// Validation errors.
var (
	ErrEmptyContent       = errors.New("content is required")
	ErrInvalidSensitivity = errors.New("sensitivity level must be between 0 and 3")
	ErrEmptyNoteID        = errors.New("note_id is required")
)

// Lookup and access errors.
var (
	ErrNoteNotFound = errors.New("note not found")
	ErrPinRejected  = errors.New("pin verification failed")
)
