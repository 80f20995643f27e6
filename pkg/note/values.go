package note

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Set is an ordered set of values. Order is the insertion order of the
// first occurrence; the zero value is an empty set.
type Set []any

// NewSet returns a set holding the distinct comparable elements of vs.
// Incomparable elements are kept as-is.
func NewSet(vs ...any) Set {
	out := make(Set, 0, len(vs))
	for _, v := range vs {
		if !out.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether v is in s.
func (s Set) Contains(v any) (found bool) {
	defer func() {
		// Comparing incomparable dynamic types panics; treat as absent.
		if recover() != nil {
			found = false
		}
	}()
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// Map is an insertion-ordered mapping. Composite rendering preserves its
// iteration order; plain Go maps are rendered in sorted key order.
type Map = orderedmap.OrderedMap[any, any]

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return orderedmap.New[any, any]()
}

// MapOf builds an ordered map from alternating key/value arguments.
// A trailing key without value maps to nil.
func MapOf(kv ...any) *Map {
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		var v any
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		m.Set(kv[i], v)
	}
	return m
}

// Table is a tabular value: column identifiers and rows of cells.
// A well-formed table has len(row) == len(Columns) for every row.
type Table struct {
	Columns []any
	Rows    [][]any
}
