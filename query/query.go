// Package query filters and paginates array-shaped values addressed by a
// navigation path.
//
// Information Hiding:
// - Filter key resolution (dotted paths per element) hidden behind gjson
// - Timestamp coercion rules encapsulated in parseTimestamp
package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/tidwall/gjson"

	"github.com/richinex/theseus/jsonpath"
)

// DefaultLimit is the page size when the caller does not set one.
const DefaultLimit = 20

// Spec describes a query: an optional navigation path, an optional filter
// (dotted key -> scalar equality or range operators), and pagination.
type Spec struct {
	Path   string         `json:"path,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}

// Result is the paginated outcome for an array value.
type Result struct {
	Results []any  `json:"results"`
	Total   int    `json:"total"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"hasMore"`
	Message string `json:"message"`
}

// NonArrayResult is returned when the navigated value is not an array: the
// value comes back as-is with its runtime type tag.
type NonArrayResult struct {
	Value   any    `json:"value"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Apply evaluates spec against an already-navigated value and returns
// either *Result (arrays) or *NonArrayResult (everything else).
func Apply(value any, spec Spec) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		typ := jsonpath.TypeName(value)
		return &NonArrayResult{
			Value:   value,
			Type:    typ,
			Message: fmt.Sprintf("value at path %q is %s, not an array; returning it as-is", spec.Path, typ),
		}, nil
	}

	limit := spec.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := spec.Offset
	if offset < 0 {
		offset = 0
	}

	filtered := arr
	if len(spec.Filter) > 0 {
		filtered = filterItems(arr, spec.Filter)
	}

	total := len(filtered)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := append([]any(nil), filtered[start:end]...)
	return &Result{
		Results: page,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+limit < total,
		Message: fmt.Sprintf("Showing %d of %d items (offset %d, limit %d)", len(page), total, offset, limit),
	}, nil
}

// filterItems keeps the elements matching every filter key, in original
// order. An element that cannot be serialized is excluded rather than
// failing the query.
func filterItems(items []any, filter map[string]any) []any {
	kept := make([]any, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if matchesAll(raw, filter) {
			kept = append(kept, item)
		}
	}
	return kept
}

// matchesAll applies every filter key (logical AND). Keys are dotted paths
// resolved against the element; an element missing a key is excluded.
func matchesAll(raw []byte, filter map[string]any) bool {
	for key, want := range filter {
		got := gjson.GetBytes(raw, key)
		if !got.Exists() {
			return false
		}
		if ops, ok := rangeOperators(want); ok {
			if !matchesRange(got, ops) {
				return false
			}
			continue
		}
		if !matchesEqual(got, want) {
			return false
		}
	}
	return true
}

var rangeKeys = []string{"$gte", "$lte", "$gt", "$lt"}

// rangeOperators reports whether the filter value is an object carrying at
// least one range operator.
func rangeOperators(want any) (map[string]any, bool) {
	m, ok := want.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range rangeKeys {
		if _, ok := m[k]; ok {
			return m, true
		}
	}
	return nil, false
}

// matchesRange compares the element value against each bound as a
// timestamp. A field value or bound that cannot be parsed as a timestamp
// never matches: the element is excluded. Keys other than the range
// operators are ignored.
func matchesRange(got gjson.Result, ops map[string]any) bool {
	val, ok := parseTimestamp(got.Value())
	if !ok {
		return false
	}
	for op, rawBound := range ops {
		switch op {
		case "$gte", "$lte", "$gt", "$lt":
		default:
			continue
		}
		bound, ok := parseTimestamp(rawBound)
		if !ok {
			return false
		}
		switch op {
		case "$gte":
			if val.Before(bound) {
				return false
			}
		case "$lte":
			if val.After(bound) {
				return false
			}
		case "$gt":
			if !val.After(bound) {
				return false
			}
		case "$lt":
			if !val.Before(bound) {
				return false
			}
		}
	}
	return true
}

// matchesEqual compares a resolved element value against a scalar filter
// value. Object and array filter values compare structurally.
func matchesEqual(got gjson.Result, want any) bool {
	switch w := want.(type) {
	case string:
		return got.Type == gjson.String && got.Str == w
	case float64:
		return got.Type == gjson.Number && got.Num == w
	case bool:
		return (got.Type == gjson.True && w) || (got.Type == gjson.False && !w)
	case nil:
		return got.Type == gjson.Null
	default:
		return reflect.DeepEqual(got.Value(), want)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp coerces a JSON value to a timestamp. Strings try the
// accepted layouts in order; numbers are unix seconds, or milliseconds
// when at or above 1e12. Anything else is unparsable.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	case float64:
		if t >= 1e12 {
			return time.UnixMilli(int64(t)), true
		}
		return time.Unix(int64(t), 0), true
	}
	return time.Time{}, false
}
