package storage

import "sort"

// BuildSummary produces a compact structural preview of a decoded JSON
// value. Pure function, no side effects.
//
// Arrays record the item count, the first three items verbatim, and up to
// ten key names of the first element when it is an object. Objects record
// up to twenty top-level key names plus the length of a "data" array when
// one exists. Scalars and null yield an empty summary.
func BuildSummary(value any) Summary {
	switch v := value.(type) {
	case []any:
		s := Summary{Structure: StructureArray, TotalItems: len(v)}
		n := len(v)
		if n > 3 {
			n = 3
		}
		s.FirstItems = append([]any(nil), v[:n]...)
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				s.ItemKeys = sortedKeys(first, 10)
			}
		}
		return s
	case map[string]any:
		s := Summary{Structure: StructureObject, Keys: sortedKeys(v, 20)}
		if data, ok := v["data"].([]any); ok {
			s.HasDataArray = true
			s.DataArrayLength = len(data)
		}
		return s
	default:
		return Summary{}
	}
}

// sortedKeys returns up to limit key names in sorted order. Decoded JSON
// objects have no observable key order in Go, so sorting keeps summaries
// deterministic.
func sortedKeys(m map[string]any, limit int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
