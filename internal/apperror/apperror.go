// Package apperror defines the domain errors shared by every layer.
//
// Repositories and services return these; only the HTTP layer decides
// which status code each one becomes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel the error matches via errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a single field-level validation failure.
// Several failures for one write are combined with errors.Join; see Fields.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when credentials are missing or wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Fields collects every *AppError found in err, including the members of
// an errors.Join tree, keyed by field name. Errors without a field are
// stored under "base". When a field failed more than once the first
// message wins.
func Fields(err error) map[string]string {
	out := make(map[string]string)
	collectFields(err, out)
	return out
}

func collectFields(err error, out map[string]string) {
	if err == nil {
		return
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectFields(e, out)
		}
		return
	}

	appErr, ok := err.(*AppError)
	if !ok {
		collectFields(errors.Unwrap(err), out)
		return
	}

	key := appErr.Field
	if key == "" {
		key = "base"
	}
	if _, seen := out[key]; !seen {
		out[key] = appErr.Message
	}
}
