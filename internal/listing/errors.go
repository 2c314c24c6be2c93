package listing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed page request
	ErrInvalidRequest = errors.New("invalid page request")

	// ErrInvalidState indicates a marker was requested for a page that was never reached
	ErrInvalidState = errors.New("invalid listing state")

	// ErrStaleFetch indicates a newer fetch superseded this one
	ErrStaleFetch = errors.New("fetch superseded by a newer request")
)

// PageFetchError wraps a failure of the listing call for a page
type PageFetchError struct {
	PageIndex int
	Prefix    string
	Err       error
}

func (e *PageFetchError) Error() string {
	if e.Prefix != "" {
		return fmt.Sprintf("fetch page %d of %q: %v", e.PageIndex, e.Prefix, e.Err)
	}
	return fmt.Sprintf("fetch page %d: %v", e.PageIndex, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// IsPageFetchError returns true if err came from the listing call itself
func IsPageFetchError(err error) bool {
	var pfe *PageFetchError
	return errors.As(err, &pfe)
}
