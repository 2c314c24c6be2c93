// Package models contains data structures used across handlers
package models

// EntryRow is one row of the container browser table
type EntryRow struct {
	Name          string
	DisplayName   string
	Link          string
	IsDir         bool
	IsParent      bool
	FormattedSize string
	ContentType   string
	LastModified  string
	Publisher     string
	Category      string
	License       string
	DownloadURL   string
}

// Breadcrumb for navigation
type Breadcrumb struct {
	Name string
	Path string
}

// SortColumn is a sortable table header
type SortColumn struct {
	Title     string
	Field     string
	Link      string
	Active    bool
	Ascending bool
}

// Pager drives the previous/next controls
type Pager struct {
	Page       int
	TotalPages int
	PrevLink   string
	NextLink   string
}

// EntryJSON is the API representation of a listing entry
type EntryJSON struct {
	Name          string            `json:"name"`
	IsDirectory   bool              `json:"isDirectory"`
	ContentLength *int64            `json:"contentLength,omitempty"`
	ContentType   string            `json:"contentType,omitempty"`
	LastModified  string            `json:"lastModified,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	URL           string            `json:"url,omitempty"`
}

// EntriesResponse is returned by the entries API
type EntriesResponse struct {
	Prefix     string      `json:"prefix"`
	Sort       string      `json:"sort"`
	Entries    []EntryJSON `json:"entries"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
	HasNext    bool        `json:"hasNext"`
}
