package providers

import (
	"fmt"
	"time"
)

// ConfigError indicates invalid adapter configuration.
type ConfigError struct {
	Adapter string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid config field %q: %s", e.Adapter, e.Field, e.Message)
}

// APIError is a non-retryable error response from a vendor API.
type APIError struct {
	Adapter    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error (status %d): %s", e.Adapter, e.StatusCode, e.Message)
}

// AuthError indicates the vendor rejected our credentials.
type AuthError struct {
	Adapter string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Adapter, e.Message)
}

// RateLimitError indicates the vendor throttled us.
type RateLimitError struct {
	Adapter    string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (retry after %s): %s", e.Adapter, e.RetryAfter, e.Message)
}

// TimeoutError indicates the request exceeded the configured timeout.
type TimeoutError struct {
	Adapter string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Adapter, e.Timeout)
}

// ParseError indicates the vendor returned a response we could not decode.
type ParseError struct {
	Adapter     string
	RawResponse string
	Cause       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %v", e.Adapter, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
