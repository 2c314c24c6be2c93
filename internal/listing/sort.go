package listing

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SortKey orders entries by one field
type SortKey struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// SortSpec is applied in priority order; the first key is the primary one
type SortSpec []SortKey

// DefaultSort orders by name ascending
var DefaultSort = SortSpec{{Field: "name"}}

// ParseSortSpec parses "name:asc,contentLength:desc". A key without a direction is ascending.
func ParseSortSpec(s string) (SortSpec, error) {
	var spec SortSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("%w: empty sort field in %q", ErrInvalidRequest, s)
		}
		key := SortKey{Field: field}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			key.Descending = true
		default:
			return nil, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidRequest, dir)
		}
		spec = append(spec, key)
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: empty sort spec", ErrInvalidRequest)
	}
	return spec, nil
}

// String is the inverse of ParseSortSpec
func (s SortSpec) String() string {
	parts := make([]string, 0, len(s))
	for _, k := range s {
		dir := "asc"
		if k.Descending {
			dir = "desc"
		}
		parts = append(parts, k.Field+":"+dir)
	}
	return strings.Join(parts, ",")
}

// Primary returns the first key, or the zero key for an empty spec
func (s SortSpec) Primary() SortKey {
	if len(s) == 0 {
		return SortKey{}
	}
	return s[0]
}

// Toggle makes field the primary key. Selecting the current primary key flips its direction.
func (s SortSpec) Toggle(field string) SortSpec {
	p := s.Primary()
	if strings.EqualFold(p.Field, field) {
		return SortSpec{{Field: p.Field, Descending: !p.Descending}}
	}
	return SortSpec{{Field: field}}
}

// Comparator orders two entries
type Comparator func(a, b Entry) int

// Compile builds the comparator for spec once. Ties on every key compare equal.
func Compile(spec SortSpec) Comparator {
	keys := slices.Clone(spec)
	return func(a, b Entry) int {
		for _, k := range keys {
			c := compareValues(resolve(a, k.Field), resolve(b, k.Field))
			if c == 0 {
				continue
			}
			if k.Descending {
				return -c
			}
			return c
		}
		return 0
	}
}

// SortEntries sorts entries in place, keeping the listing order of equal entries
func SortEntries(entries []Entry, spec SortSpec) {
	slices.SortStableFunc(entries, Compile(spec))
}

type valueKind int

// Kinds are ranked so that null is the smallest value of all.
const (
	kindNull valueKind = iota
	kindBool
	kindNumber
	kindTime
	kindString
)

type value struct {
	kind valueKind
	s    string
	n    int64
	t    time.Time
	b    bool
}

var null = value{kind: kindNull}

func stringValue(p *string) value {
	if p == nil {
		return null
	}
	return value{kind: kindString, s: strings.ToLower(*p)}
}

func compareValues(a, b value) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case kindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case kindNumber:
		return cmp.Compare(a.n, b.n)
	case kindTime:
		return a.t.Compare(b.t)
	case kindString:
		return strings.Compare(a.s, b.s)
	}
	return 0
}

// resolve looks the field up on the entry, then on its properties, then in its metadata.
// Whatever cannot be found resolves to null.
func resolve(e Entry, field string) value {
	switch strings.ToLower(field) {
	case "name":
		return value{kind: kindString, s: strings.ToLower(e.Name)}
	case "snapshot":
		if !e.IsDirectory() {
			return stringValue(e.Snapshot)
		}
	case "versionid":
		if !e.IsDirectory() {
			return stringValue(e.VersionID)
		}
	case "deleted":
		if !e.IsDirectory() {
			if e.Deleted == nil {
				return null
			}
			return value{kind: kindBool, b: *e.Deleted}
		}
	}

	p := e.Properties
	if p == nil {
		return null
	}
	switch strings.ToLower(field) {
	case "contentlength":
		if p.ContentLength == nil {
			return null
		}
		return value{kind: kindNumber, n: *p.ContentLength}
	case "lastmodified":
		if p.LastModified == nil {
			return null
		}
		return value{kind: kindTime, t: *p.LastModified}
	case "contenttype":
		return stringValue(p.ContentType)
	case "etag":
		return stringValue(p.ETag)
	case "accesstier":
		return stringValue(p.AccessTier)
	case "blobtype":
		return stringValue(p.BlobType)
	}

	for k, v := range e.Metadata {
		if strings.EqualFold(k, field) {
			return value{kind: kindString, s: strings.ToLower(v)}
		}
	}
	return null
}
