// Package listing implements paged, sorted browsing of a hierarchical blob listing.
package listing

import (
	"context"
	"strings"
	"time"
)

// Delimiter groups nested keys into virtual directories
const Delimiter = "/"

// Entry is a blob or a virtual directory returned by a hierarchical listing
type Entry struct {
	Name string `json:"name"`

	// Blob-only fields. A nil value on a blob is treated as null when sorting.
	Snapshot  *string `json:"snapshot,omitempty"`
	VersionID *string `json:"versionId,omitempty"`
	Deleted   *bool   `json:"deleted,omitempty"`

	Properties *Properties       `json:"properties,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Properties holds the system properties of a blob
type Properties struct {
	ContentLength *int64     `json:"contentLength,omitempty"`
	ContentType   *string    `json:"contentType,omitempty"`
	LastModified  *time.Time `json:"lastModified,omitempty"`
	ETag          *string    `json:"etag,omitempty"`
	AccessTier    *string    `json:"accessTier,omitempty"`
	BlobType      *string    `json:"blobType,omitempty"`
}

// IsDirectory reports whether the entry is a virtual directory
func (e Entry) IsDirectory() bool {
	return strings.HasSuffix(e.Name, Delimiter)
}

// ListRequest is a single hierarchical listing call
type ListRequest struct {
	Prefix          string
	Delimiter       string
	Marker          string
	MaxResults      int32
	IncludeMetadata bool
}

// ListResponse is what a storage backend returns for one ListRequest
type ListResponse struct {
	Entries           []Entry
	DirectoryPrefixes []string
	NextMarker        string
}

// Lister performs hierarchical listing calls against a storage backend
type Lister interface {
	ListHierarchy(ctx context.Context, req ListRequest) (*ListResponse, error)
}

// ListerFunc adapts a function to the Lister interface
type ListerFunc func(ctx context.Context, req ListRequest) (*ListResponse, error)

func (f ListerFunc) ListHierarchy(ctx context.Context, req ListRequest) (*ListResponse, error) {
	return f(ctx, req)
}
