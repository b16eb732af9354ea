package reddit

import (
	"errors"
	"fmt"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// Reddit-specific errors.
var (
	// ErrMissingCredentials indicates the client ID or secret was not provided.
	ErrMissingCredentials = errors.New("reddit: client id and secret are required")

	// ErrInvalidName indicates a malformed subreddit name or thread ID.
	ErrInvalidName = errors.New("reddit: invalid name")
)

// RateLimitError represents a throttled request with its reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("reddit: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap lets errors.Is match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents an unexpected Reddit API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto the domain taxonomy.
// 403 is reported as not found because Reddit uses it for private and quarantined communities.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 403, 404:
		return domain.ErrNotFound
	}
	return domain.ErrUpstream
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates rejected credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}
