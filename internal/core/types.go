package core

import (
	"time"

	"github.com/JonMunkholm/socialnet/internal/store"
)

// Validator accepts or rejects a single field value.
type Validator func(value string) bool

// FieldSpec maps one feed column to a stored attribute.
type FieldSpec struct {
	Column    string    // Column header name in the feed, e.g. "USER_ID"
	Attribute string    // Stored attribute name, e.g. "user_id"
	Validate  Validator // Applied to the raw cell value
}

// Feed is the static column mapping for one collection.
type Feed struct {
	Collection store.Collection
	Fields     []FieldSpec
}

// Lookup returns the field spec for a header column. Names must match
// exactly, case and whitespace included.
func (f Feed) Lookup(column string) (FieldSpec, bool) {
	for _, spec := range f.Fields {
		if spec.Column == column {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Columns returns the expected header column names in declaration order.
func (f Feed) Columns() []string {
	cols := make([]string, len(f.Fields))
	for i, spec := range f.Fields {
		cols[i] = spec.Column
	}
	return cols
}

// LoadResult describes a committed load.
type LoadResult struct {
	LoadID     string
	Collection store.Collection
	FileName   string
	RowsRead   int64 // data rows in the feed
	Inserted   int64 // rows written
	Skipped    int64 // rows whose key already existed
	Chunks     int
	Duration   time.Duration
}

// Counts holds the number of stored records per collection.
type Counts struct {
	Users    int64
	Statuses int64
}
