package storage

import (
	"encoding/json"
	"testing"
)

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("failed to decode test JSON: %v", err)
	}
	return v
}

func TestBuildSummaryArray(t *testing.T) {
	value := decodeJSON(t, `[
		{"id": 1, "name": "a", "status": "open"},
		{"id": 2, "name": "b", "status": "closed"},
		{"id": 3, "name": "c", "status": "open"},
		{"id": 4, "name": "d", "status": "open"},
		{"id": 5, "name": "e", "status": "closed"}
	]`)

	s := BuildSummary(value)
	if s.Structure != StructureArray {
		t.Fatalf("expected array structure, got %q", s.Structure)
	}
	if s.TotalItems != 5 {
		t.Errorf("expected 5 total items, got %d", s.TotalItems)
	}
	if len(s.FirstItems) != 3 {
		t.Errorf("expected 3 first items, got %d", len(s.FirstItems))
	}
	expectedKeys := []string{"id", "name", "status"}
	if len(s.ItemKeys) != len(expectedKeys) {
		t.Fatalf("expected %d item keys, got %v", len(expectedKeys), s.ItemKeys)
	}
	for i, k := range expectedKeys {
		if s.ItemKeys[i] != k {
			t.Errorf("expected item key %q at %d, got %q", k, i, s.ItemKeys[i])
		}
	}
}

func TestBuildSummaryArrayOfScalars(t *testing.T) {
	s := BuildSummary(decodeJSON(t, `[10, 20]`))
	if s.Structure != StructureArray {
		t.Fatalf("expected array structure, got %q", s.Structure)
	}
	if s.TotalItems != 2 {
		t.Errorf("expected 2 total items, got %d", s.TotalItems)
	}
	if len(s.FirstItems) != 2 {
		t.Errorf("expected 2 first items, got %d", len(s.FirstItems))
	}
	if s.ItemKeys != nil {
		t.Errorf("expected no item keys for scalar elements, got %v", s.ItemKeys)
	}
}

func TestBuildSummaryItemKeysCapped(t *testing.T) {
	obj := make(map[string]any)
	for i := 0; i < 15; i++ {
		obj[string(rune('a'+i))] = i
	}
	s := BuildSummary([]any{obj})
	if len(s.ItemKeys) != 10 {
		t.Errorf("expected item keys capped at 10, got %d", len(s.ItemKeys))
	}
}

func TestBuildSummaryObject(t *testing.T) {
	value := decodeJSON(t, `{"data": [1, 2, 3], "total": 3, "page": 1}`)

	s := BuildSummary(value)
	if s.Structure != StructureObject {
		t.Fatalf("expected object structure, got %q", s.Structure)
	}
	if len(s.Keys) != 3 {
		t.Errorf("expected 3 keys, got %v", s.Keys)
	}
	if !s.HasDataArray {
		t.Error("expected hasDataArray to be set")
	}
	if s.DataArrayLength != 3 {
		t.Errorf("expected data array length 3, got %d", s.DataArrayLength)
	}
}

func TestBuildSummaryObjectWithoutDataArray(t *testing.T) {
	s := BuildSummary(decodeJSON(t, `{"data": "not an array", "other": true}`))
	if s.HasDataArray {
		t.Error("expected hasDataArray to be false for non-array data property")
	}
	if s.DataArrayLength != 0 {
		t.Errorf("expected zero data array length, got %d", s.DataArrayLength)
	}
}

func TestBuildSummaryKeysCapped(t *testing.T) {
	obj := make(map[string]any)
	for i := 0; i < 25; i++ {
		obj[string(rune('a'+i))] = i
	}
	s := BuildSummary(obj)
	if len(s.Keys) != 20 {
		t.Errorf("expected keys capped at 20, got %d", len(s.Keys))
	}
}

func TestBuildSummaryScalarAndNull(t *testing.T) {
	for _, value := range []any{nil, "text", 42.0, true} {
		s := BuildSummary(value)
		if s.Structure != "" {
			t.Errorf("expected empty summary for %v, got structure %q", value, s.Structure)
		}
	}
}
