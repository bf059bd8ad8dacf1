package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when the backend rejects the session token.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("api: not found")
)

// FallbackMessage is shown when the backend supplies no usable message.
const FallbackMessage = "Something went wrong, try again later."

// Error is the tagged backend error, resolved once at the API boundary.
// A response either scopes failures to individual fields (FieldErrors) or
// describes the whole operation (Message); downstream code never re-inspects
// the raw payload shape.
type Error struct {
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.HasFieldErrors() {
		fields := make([]string, 0, len(e.FieldErrors))
		for field := range e.FieldErrors {
			fields = append(fields, field)
		}
		return fmt.Sprintf("api: validation failed (%s)", strings.Join(fields, ", "))
	}
	if e.Message != "" {
		return "api: " + e.Message
	}
	return fmt.Sprintf("api: request failed with status %d", e.StatusCode)
}

// HasFieldErrors reports whether the failure is field-scoped.
func (e *Error) HasFieldErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

// UserMessage returns the server-supplied message with a generic fallback.
func (e *Error) UserMessage() string {
	if e != nil && e.Message != "" {
		return e.Message
	}
	return FallbackMessage
}

// errorPayload mirrors the backend's loose error shape: sometimes a field map,
// sometimes a flat message, sometimes both.
type errorPayload struct {
	Message string              `json:"message"`
	Detail  string              `json:"detail"`
	Errors  map[string][]string `json:"errors"`
}

func decodeError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status, Message: FallbackMessage}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
		} else if payload.Detail != "" {
			apiErr.Message = payload.Detail
		}
		if len(payload.Errors) > 0 {
			apiErr.FieldErrors = payload.Errors
		}
	}

	return apiErr
}

// ErrorKind maps errors from this package to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.HasFieldErrors() {
			return "validation"
		}
		return "rejected"
	}

	return "transport"
}
