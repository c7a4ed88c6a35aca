// Package trackererr provides common error types shared by all tracker
// backends.
package trackererr

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Base errors backends wrap with backend-specific context.
var (
	// ErrNoToken is returned when no API token is configured.
	ErrNoToken = errors.New("api token not found")

	// ErrUnauthorized is returned when the API token is invalid or expired.
	ErrUnauthorized = errors.New("token unauthorized or expired")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("api rate limit exceeded")

	// ErrNetwork is returned for network-related errors.
	ErrNetwork = errors.New("network error")

	// ErrNotFound is returned when an item or request does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// BackendError wraps an error with the backend name for better messages.
type BackendError struct {
	Err     error
	Backend string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Wrap adds backend context to an error.
func Wrap(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited reports whether err is or wraps ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether the error is worth retrying with backoff:
// rate limits and transient network failures.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

// WrapHTTP converts HTTP failures to typed errors.
func WrapHTTP(backend string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(backend, fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	switch statusCode {
	case http.StatusUnauthorized:
		return Wrap(backend, fmt.Errorf("%w: %v", ErrUnauthorized, err))
	case http.StatusForbidden, http.StatusTooManyRequests:
		return Wrap(backend, fmt.Errorf("%w: %v", ErrRateLimited, err))
	case http.StatusNotFound:
		return Wrap(backend, fmt.Errorf("%w: %v", ErrNotFound, err))
	default:
		return Wrap(backend, err)
	}
}
