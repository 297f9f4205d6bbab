package pin

import "errors"

var (
	// ErrInvalidPIN is returned by SetPin for an empty PIN.
	ErrInvalidPIN = errors.New("pin must not be empty")

	// ErrEmptyUserID is returned when no user is given.
	ErrEmptyUserID = errors.New("user_id is required")

	// ErrPersistence wraps store failures while saving a PIN.
	ErrPersistence = errors.New("pin persistence failed")
)
