package gurunavi

import (
	"errors"
	"fmt"

	"stopover-food/internal/apperr"
)

var (
	// ErrServerError indicates the API kept failing with a 5xx status
	ErrServerError = errors.New("server error")

	// ErrUnauthorized indicates a missing or rejected access key
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout indicates the request timed out or was cancelled
	ErrTimeout = errors.New("request timed out")
)

// APIError represents a non-OK status returned by the RestSearchAPI.
type APIError struct {
	StatusCode int
	Status     string
	Attempts   int
}

func (e *APIError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("gurunavi API error %d: %s (after %d attempts)", e.StatusCode, e.Status, e.Attempts)
	}
	return fmt.Sprintf("gurunavi API error %d: %s", e.StatusCode, e.Status)
}

// Is implements errors.Is for APIError
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrServerError:
		return e.StatusCode >= 500
	case ErrUnauthorized:
		return e.StatusCode == 401 || e.StatusCode == 403
	case apperr.ErrUpstreamUnavailable:
		return true
	}
	return false
}
