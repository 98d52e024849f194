package bids

import (
	"sort"
	"strings"
)

// Query selects files from a Layout by their type suffix, extension and
// entity values.
type Query struct {
	// Type is the trailing suffix, e.g. "events" or "preproc". Empty matches any.
	Type string
	// Extensions without the leading dot, e.g. "nii.gz". Empty matches any.
	Extensions []string
	Filters    Filters
}

// Filters maps entity names to required values. A file lacking a filtered
// entity never matches. Build it only from constraints the caller actually
// wants; there is no wildcard value.
type Filters map[string]string

func (f Filters) matches(entities map[string]string) bool {
	for k, want := range f {
		got, ok := entities[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// String renders the filters as sorted key=value pairs.
func (f Filters) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, ",")
}
