package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func blob(name string, size int64) Entry {
	return Entry{
		Name:       name,
		Properties: &Properties{ContentLength: ptr(size)},
	}
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected SortSpec
	}{
		{"single ascending", "name:asc", SortSpec{{Field: "name"}}},
		{"implicit ascending", "name", SortSpec{{Field: "name"}}},
		{"descending", "contentLength:desc", SortSpec{{Field: "contentLength", Descending: true}}},
		{"multiple keys", "contentType:asc, name:DESC", SortSpec{{Field: "contentType"}, {Field: "name", Descending: true}}},
		{"skips empty parts", "name,,", SortSpec{{Field: "name"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseSortSpec(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, spec)
		})
	}
}

func TestParseSortSpec_Invalid(t *testing.T) {
	for _, input := range []string{"", " , ", ":asc", "name:sideways"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSortSpec(input)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestSortSpec_StringRoundTrip(t *testing.T) {
	spec := SortSpec{{Field: "lastModified", Descending: true}, {Field: "name"}}
	assert.Equal(t, "lastModified:desc,name:asc", spec.String())

	parsed, err := ParseSortSpec(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec, parsed)
}

func TestSortSpec_Toggle(t *testing.T) {
	spec := SortSpec{{Field: "name"}, {Field: "contentLength"}}

	assert.Equal(t, SortSpec{{Field: "name", Descending: true}}, spec.Toggle("name"))
	assert.Equal(t, SortSpec{{Field: "contentLength"}}, spec.Toggle("contentLength"))
	assert.Equal(t, SortSpec{{Field: "name"}}, SortSpec{{Field: "name", Descending: true}}.Toggle("NAME"))
}

func TestSortEntries_NameMergesDirectoriesAndFiles(t *testing.T) {
	entries := []Entry{blob("b.txt", 500), {Name: "sub/"}, blob("a.txt", 100)}

	SortEntries(entries, SortSpec{{Field: "name"}})

	assert.Equal(t, []string{"a.txt", "b.txt", "sub/"}, names(entries))
}

func TestSortEntries_CaseInsensitiveStrings(t *testing.T) {
	entries := []Entry{blob("beta", 1), blob("Alpha", 2), blob("alpha2", 3), blob("BETA0", 4)}

	SortEntries(entries, SortSpec{{Field: "name"}})

	assert.Equal(t, []string{"Alpha", "alpha2", "beta", "BETA0"}, names(entries))
}

func TestSortEntries_DescendingMissingPropertiesSortsLast(t *testing.T) {
	entries := []Entry{blob("small", 10), {Name: "dir/"}, blob("big", 1000)}

	SortEntries(entries, SortSpec{{Field: "contentLength", Descending: true}})

	assert.Equal(t, []string{"big", "small", "dir/"}, names(entries))
}

func TestSortEntries_AscendingNullSortsFirst(t *testing.T) {
	entries := []Entry{
		blob("small", 10),
		{Name: "no-length", Properties: &Properties{}},
		{Name: "dir/"},
	}

	SortEntries(entries, SortSpec{{Field: "contentLength"}})

	assert.Equal(t, "small", entries[2].Name)
	assert.ElementsMatch(t, []string{"no-length", "dir/"}, names(entries[:2]))
}

func TestSortEntries_PropertiesFallback(t *testing.T) {
	older := time.Date(2021, 12, 31, 6, 16, 36, 0, time.UTC)
	newer := older.Add(time.Hour)
	entries := []Entry{
		{Name: "new", Properties: &Properties{LastModified: &newer}},
		{Name: "old", Properties: &Properties{LastModified: &older}},
	}

	SortEntries(entries, SortSpec{{Field: "lastModified"}})

	assert.Equal(t, []string{"old", "new"}, names(entries))
}

func TestSortEntries_MetadataFallback(t *testing.T) {
	entries := []Entry{
		{Name: "a", Properties: &Properties{}, Metadata: map[string]string{"Publisher": "zeta"}},
		{Name: "b", Properties: &Properties{}, Metadata: map[string]string{"Publisher": "Acme"}},
		{Name: "c", Properties: &Properties{}},
	}

	SortEntries(entries, SortSpec{{Field: "publisher"}})

	assert.Equal(t, []string{"c", "b", "a"}, names(entries))
}

func TestSortEntries_TopLevelNullOnBlob(t *testing.T) {
	entries := []Entry{
		{Name: "versioned", VersionID: ptr("2024-01-01"), Properties: &Properties{}},
		{Name: "plain", Properties: &Properties{}},
	}

	SortEntries(entries, SortSpec{{Field: "versionId"}})

	assert.Equal(t, []string{"plain", "versioned"}, names(entries))
}

func TestSortEntries_MultiKeyTieBreak(t *testing.T) {
	entries := []Entry{
		{Name: "b.csv", Properties: &Properties{ContentType: ptr("text/csv")}},
		{Name: "z.png", Properties: &Properties{ContentType: ptr("image/png")}},
		{Name: "a.csv", Properties: &Properties{ContentType: ptr("TEXT/CSV")}},
	}

	SortEntries(entries, SortSpec{{Field: "contentType"}, {Field: "name", Descending: true}})

	assert.Equal(t, []string{"z.png", "b.csv", "a.csv"}, names(entries))
}

func TestSortEntries_StableForEqualKeys(t *testing.T) {
	entries := []Entry{blob("first", 5), blob("second", 5), blob("third", 5)}

	SortEntries(entries, SortSpec{{Field: "contentLength"}})

	assert.Equal(t, []string{"first", "second", "third"}, names(entries))
}

func TestSortEntries_UnknownFieldKeepsOrder(t *testing.T) {
	entries := []Entry{blob("b", 1), {Name: "a/"}}

	SortEntries(entries, SortSpec{{Field: "doesNotExist"}})

	assert.Equal(t, []string{"b", "a/"}, names(entries))
}

func TestCompile_OrderingHolds(t *testing.T) {
	entries := []Entry{
		blob("c", 3), blob("A", 30), {Name: "x/"}, blob("b", 3), blob("d", 300), {Name: "nil", Properties: &Properties{}},
	}

	for _, spec := range []SortSpec{
		{{Field: "name"}},
		{{Field: "name", Descending: true}},
		{{Field: "contentLength"}, {Field: "name"}},
		{{Field: "contentLength", Descending: true}, {Field: "name", Descending: true}},
	} {
		t.Run(spec.String(), func(t *testing.T) {
			sorted := append([]Entry(nil), entries...)
			SortEntries(sorted, spec)
			cmpFn := Compile(spec)
			for i := 1; i < len(sorted); i++ {
				assert.LessOrEqual(t, cmpFn(sorted[i-1], sorted[i]), 0,
					"%s should not sort after %s", sorted[i-1].Name, sorted[i].Name)
			}
		})
	}
}
