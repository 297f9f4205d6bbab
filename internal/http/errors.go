package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/redactd/internal/notes"
	"github.com/fyrsmithlabs/redactd/internal/pin"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
)

var validationErrors = []error{
	notes.ErrEmptyContent,
	notes.ErrInvalidSensitivity,
	notes.ErrEmptyNoteID,
	pin.ErrInvalidPIN,
	pin.ErrEmptyUserID,
	secrets.ErrInputTooLarge,
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, notes.ErrPinRejected):
		return http.StatusForbidden
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// toHTTPError converts err for echo. Internal errors are logged by the
// request logger and reported without detail.
func toHTTPError(err error) *echo.HTTPError {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}
