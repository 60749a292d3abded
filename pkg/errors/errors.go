// Package errors defines the sentinel errors shared by the algorithms and the
// service layer, and maps them to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("dependency unavailable")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Fields     map[string]string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// InvalidInput returns an ErrInvalidInput AppError with a 400 status.
func InvalidInput(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

// InvalidFields returns an ErrInvalidInput AppError carrying per-field
// messages.
func InvalidFields(fields map[string]string) *AppError {
	return &AppError{
		Err:        ErrInvalidInput,
		Message:    fmt.Sprintf("%d invalid field(s)", len(fields)),
		StatusCode: http.StatusBadRequest,
		Fields:     fields,
	}
}

// FieldErrors returns the per-field messages attached to err, if any.
func FieldErrors(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
