package listing

import (
	"context"
	"fmt"
	"math"
)

// Request describes one page of a browsing session
type Request struct {
	PageIndex int
	Prefix    string
	Sort      SortSpec
	PageSize  int
	Markers   MarkerTable
}

// Result is one sorted page plus the state needed to reach the next one
type Result struct {
	Entries    []Entry
	Markers    MarkerTable
	TotalPages int
	NextMarker string
}

// HasNext reports whether the listing continues past this page
func (r Result) HasNext() bool {
	return r.NextMarker != ""
}

func (r Request) validate() error {
	if r.PageIndex < 0 {
		return fmt.Errorf("%w: page index must not be negative, got %d", ErrInvalidRequest, r.PageIndex)
	}
	if r.PageSize <= 0 || r.PageSize > math.MaxInt32 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidRequest, r.PageSize)
	}
	if len(r.Sort) == 0 {
		return fmt.Errorf("%w: at least one sort key is required", ErrInvalidRequest)
	}
	return nil
}

// FetchPage issues exactly one listing call for req.PageIndex, merges directories and
// blobs, sorts them by req.Sort and records the marker for the following page.
// req.Markers is never modified; the returned table carries any new marker.
func FetchPage(ctx context.Context, lister Lister, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	marker, err := req.Markers.Marker(req.PageIndex)
	if err != nil {
		return Result{}, err
	}

	resp, err := lister.ListHierarchy(ctx, ListRequest{
		Prefix:          req.Prefix,
		Delimiter:       Delimiter,
		Marker:          marker,
		MaxResults:      int32(req.PageSize),
		IncludeMetadata: true,
	})
	if err != nil {
		return Result{}, &PageFetchError{PageIndex: req.PageIndex, Prefix: req.Prefix, Err: err}
	}
	if resp == nil {
		resp = &ListResponse{}
	}

	entries := make([]Entry, 0, len(resp.Entries)+len(resp.DirectoryPrefixes))
	entries = append(entries, resp.Entries...)
	for _, p := range resp.DirectoryPrefixes {
		entries = append(entries, Entry{Name: p})
	}
	SortEntries(entries, req.Sort)

	result := Result{
		Entries:    entries,
		Markers:    req.Markers,
		TotalPages: req.PageIndex + 1,
	}
	if resp.NextMarker != "" {
		result.Markers = req.Markers.With(req.PageIndex+1, resp.NextMarker)
		result.NextMarker = resp.NextMarker
		result.TotalPages++
	}
	return result, nil
}
