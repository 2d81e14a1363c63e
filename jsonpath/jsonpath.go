// Package jsonpath resolves dot/bracket path expressions against decoded
// JSON values.
//
// A path expression is a sequence of segments joined by dots. Each segment
// is a plain property name ("user"), a property name with a zero-based
// array index ("items[2]"), or a bare index ("[2]") applied to the current
// value directly. Segments resolve left to right; each must resolve before
// the next is attempted. The empty expression resolves to the root.
package jsonpath

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Segment is one step of a parsed path expression.
type Segment struct {
	Name     string
	Index    int
	HasIndex bool
}

// String renders the segment as it would appear in a path expression.
func (s Segment) String() string {
	if s.HasIndex {
		return fmt.Sprintf("%s[%d]", s.Name, s.Index)
	}
	return s.Name
}

// PathError reports the segment where resolution failed with enough
// context for the caller to self-correct: the available keys on a missing
// property, the array length on an out-of-bounds index.
type PathError struct {
	Segment       string
	Message       string
	AvailableKeys []string
	Length        int // Array length on out-of-bounds failures, -1 otherwise
}

func (e *PathError) Error() string {
	return e.Message
}

var segmentPattern = regexp.MustCompile(`^([^\[\]]*)(?:\[(\d+)\])?$`)

// Parse splits a path expression into segments. An empty or blank
// expression yields nil, which Resolve treats as the root.
func Parse(expr string) ([]Segment, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	parts := strings.Split(expr, ".")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		m := segmentPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid path segment %q in %q", part, expr)
		}
		seg := Segment{Name: m[1]}
		if m[2] != "" {
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("invalid index in segment %q: %w", part, err)
			}
			seg.Index = idx
			seg.HasIndex = true
		}
		if seg.Name == "" && !seg.HasIndex {
			return nil, fmt.Errorf("invalid path segment %q in %q", part, expr)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Resolve walks the segments from root and returns the addressed
// sub-value. Failures are *PathError values, never silent nulls.
func Resolve(root any, segments []Segment) (any, error) {
	current := root
	for _, seg := range segments {
		written := seg.String()

		if current == nil {
			return nil, &PathError{
				Segment: written,
				Length:  -1,
				Message: fmt.Sprintf("cannot navigate into null at %q", written),
			}
		}

		if seg.Name != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, &PathError{
					Segment: written,
					Length:  -1,
					Message: fmt.Sprintf("cannot read property %q of %s", seg.Name, TypeName(current)),
				}
			}
			val, exists := obj[seg.Name]
			if !exists {
				keys := availableKeys(obj)
				return nil, &PathError{
					Segment:       written,
					AvailableKeys: keys,
					Length:        -1,
					Message: fmt.Sprintf("property %q not found; available properties: %s",
						seg.Name, strings.Join(keys, ", ")),
				}
			}
			current = val
		}

		if seg.HasIndex {
			arr, ok := current.([]any)
			if !ok {
				msg := fmt.Sprintf("cannot index into %s at %q", TypeName(current), written)
				if seg.Name != "" {
					msg = fmt.Sprintf("property %q is not an array (got %s)", seg.Name, TypeName(current))
				}
				return nil, &PathError{Segment: written, Length: -1, Message: msg}
			}
			if seg.Index < 0 || seg.Index >= len(arr) {
				return nil, &PathError{
					Segment: written,
					Length:  len(arr),
					Message: fmt.Sprintf("index %d out of bounds for array of length %d at %q",
						seg.Index, len(arr), written),
				}
			}
			current = arr[seg.Index]
		}
	}
	return current, nil
}

// Get parses expr and resolves it against root in one step.
func Get(root any, expr string) (any, error) {
	segments, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return Resolve(root, segments)
}

// TypeName names the JSON type of a decoded value for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// availableKeys lists up to 10 property names in sorted order.
func availableKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 10 {
		keys = keys[:10]
	}
	return keys
}
