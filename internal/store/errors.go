package store

import "errors"

var (
	// ErrNotFound is returned when a note or profile does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSpan is returned for spans with negative or empty intervals.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrEmptyID is returned when a required identifier is blank.
	ErrEmptyID = errors.New("id is required")

	// ErrUnknownDriver is returned by Open for an unsupported store driver.
	ErrUnknownDriver = errors.New("unknown store driver")
)
