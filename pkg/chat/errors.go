package chat

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API key is stored.
var ErrNotConfigured = errors.New("chat: API key not configured")

// APIError is an error response from the chat completion API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the API error code, if provided.
	Code string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chat: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("chat: API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized reports an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError reports a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ProtocolError marks a response the client could not make sense of
// (malformed JSON, broken SSE framing).
type ProtocolError struct {
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("chat: protocol error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
