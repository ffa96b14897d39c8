package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// APIError represents a non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Is lets callers match an APIError against the domain taxonomy.
// 401 and 403 match ErrAuthInvalid; non-retryable statuses match ErrTerminalAPI.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrAuthInvalid:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case domain.ErrTerminalAPI:
		return !retryableStatus(e.StatusCode)
	}
	return false
}

// RateLimitError is returned once the retry budget is spent on 429 responses.
type RateLimitError struct {
	ResetAt  time.Time
	Attempts int
	URL      string
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("rest: rate limit exceeded after %d attempts (URL: %s)", e.Attempts, e.URL)
	}
	return fmt.Sprintf("rest: rate limit exceeded after %d attempts, resets at %s (URL: %s)",
		e.Attempts, e.ResetAt.Format(time.RFC3339), e.URL)
}

func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	return errors.Is(err, domain.ErrRateLimited)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsForbidden checks if the error indicates a forbidden resource.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRetryable reports whether a request failing with err may succeed if repeated.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}
	return IsRateLimited(err)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Terminal wraps a provider-level failure (bad envelope, missing field)
// so it matches domain.ErrTerminalAPI.
func Terminal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrTerminalAPI, fmt.Sprintf(format, args...))
}
