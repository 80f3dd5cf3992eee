package backend

import (
	"errors"
	"fmt"

	"portal/internal/models"
)

var (
	ErrNotFound    = errors.New("backend: not found")
	ErrConflict    = errors.New("backend: conflict")
	ErrUnavailable = errors.New("backend: unavailable")
	ErrForeignLink = errors.New("backend: link does not point to the backend")
)

// ValidationError carries the field-keyed messages of a 422 response.
type ValidationError struct {
	Message string             `json:"message"`
	Fields  models.FieldErrors `json:"errors"`
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return "backend: validation failed: " + e.Message
	}
	return fmt.Sprintf("backend: validation failed on %d field(s)", len(e.Fields))
}

// StatusError is any other non-success response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: http %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend: http %d", e.Code)
}

// AsValidation unwraps a *ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
