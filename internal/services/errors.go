package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for storage operations.
var (
	// ErrInvalidConnection indicates the connect form was incomplete or inconsistent.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrAccessDenied indicates the credentials do not allow listing.
	ErrAccessDenied = errors.New("access denied")

	// ErrContainerNotFound indicates the container or bucket does not exist.
	ErrContainerNotFound = errors.New("container not found")

	// ErrThrottled indicates the storage service rate limited the request.
	ErrThrottled = errors.New("request throttled")
)

// ProviderError wraps a storage SDK error with the operation that failed.
// Both the classified sentinel and the SDK error stay reachable through errors.Is/As.
type ProviderError struct {
	Op        string
	Provider  Provider
	Container string
	Kind      error
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Container, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the classification and the underlying error.
func (e *ProviderError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsContainerNotFound returns true if the error indicates a missing container or bucket.
func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
