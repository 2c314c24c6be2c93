package listing

import "fmt"

// MarkerTable maps a page index to the continuation marker that starts it.
// The zero value is an empty table. Tables are never modified in place.
type MarkerTable struct {
	markers map[int]string
}

// NewMarkerTable builds a table from recorded markers. Index 0 and empty markers are ignored.
func NewMarkerTable(markers map[int]string) MarkerTable {
	t := MarkerTable{}
	for i, m := range markers {
		t = t.With(i, m)
	}
	return t
}

// Marker returns the marker for pageIndex. Page 0 starts the listing and has none.
func (t MarkerTable) Marker(pageIndex int) (string, error) {
	if pageIndex < 0 {
		return "", fmt.Errorf("%w: negative page index %d", ErrInvalidRequest, pageIndex)
	}
	if pageIndex == 0 {
		return "", nil
	}
	m, ok := t.markers[pageIndex]
	if !ok {
		return "", fmt.Errorf("%w: no marker recorded for page %d", ErrInvalidState, pageIndex)
	}
	return m, nil
}

// Has reports whether a marker is recorded for pageIndex
func (t MarkerTable) Has(pageIndex int) bool {
	_, ok := t.markers[pageIndex]
	return ok
}

// With returns a table with marker recorded at pageIndex.
// An index that already holds a marker keeps it.
func (t MarkerTable) With(pageIndex int, marker string) MarkerTable {
	if pageIndex <= 0 || marker == "" || t.Has(pageIndex) {
		return t
	}
	next := make(map[int]string, len(t.markers)+1)
	for i, m := range t.markers {
		next[i] = m
	}
	next[pageIndex] = marker
	return MarkerTable{markers: next}
}

// Len returns the number of recorded markers
func (t MarkerTable) Len() int {
	return len(t.markers)
}

// Snapshot returns a copy of the recorded markers
func (t MarkerTable) Snapshot() map[int]string {
	out := make(map[int]string, len(t.markers))
	for i, m := range t.markers {
		out[i] = m
	}
	return out
}
