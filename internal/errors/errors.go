// Package errors provides structured error types for the assistant pipeline.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNotConfigured     = errors.New("model credential not configured")
	ErrTransport         = errors.New("model transport failure")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrUnknownAction     = errors.New("unknown action type")
)

// APIError represents a non-success answer from an external API call.
// It always matches ErrTransport under errors.Is.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is reports provider status failures as transport failures.
func (e *APIError) Is(target error) bool { return target == ErrTransport }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// Kind maps an error to a short label, used for metrics and problem responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return "transport"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	default:
		return "internal"
	}
}

// IsTurnFatal reports whether err must abort a whole chat turn rather than a single action.
func IsTurnFatal(err error) bool {
	return errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.DeadlineExceeded)
}
