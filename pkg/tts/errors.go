package tts

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the backend requires an API key and none
	// is configured.
	ErrNoAPIKey = errors.New("tts: API key required")

	// ErrNoStreamURL is returned when the synthesis API response carries no
	// usable audio URL.
	ErrNoStreamURL = errors.New("tts: no audio stream URL in response")
)

// APIError represents an error response from a TTS API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Provider identifies which backend returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("tts [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ProviderError wraps an error with backend context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
