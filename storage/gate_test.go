package storage

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"
)

func TestGatePassThrough(t *testing.T) {
	dir := t.TempDir()
	store, err := NewResponseStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewResponseStore failed: %v", err)
	}
	gate := NewGate(store, 0)

	value := map[string]any{"a": map[string]any{"b": 42.0}}
	got, err := gate.Process(context.Background(), value)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !reflect.DeepEqual(got, value) {
		t.Error("expected value to pass through unchanged")
	}

	// No file I/O for small values
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files written, found %d", len(entries))
	}
}

func TestGateOffloadsOversizedValue(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 0)

	got, err := gate.Process(context.Background(), largePayload())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	envelope, ok := got.(*Envelope)
	if !ok {
		t.Fatalf("expected envelope, got %T", got)
	}
	if !envelope.LargeResponse {
		t.Error("expected large_response marker")
	}
	if store.Metadata(envelope.ResponseID) == nil {
		t.Error("expected metadata entry for offloaded value")
	}
}

func TestGateCustomThreshold(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 10)

	got, err := gate.Process(context.Background(), map[string]any{"key": "a long enough value"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, ok := got.(*Envelope); !ok {
		t.Fatalf("expected envelope with tiny threshold, got %T", got)
	}
}

func TestGateThresholdBoundary(t *testing.T) {
	store := newTestStore(t)

	// "xx" serializes to 4 bytes; a threshold of exactly 4 passes through
	gate := NewGate(store, 4)
	got, err := gate.Process(context.Background(), "xx")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got != "xx" {
		t.Errorf("expected pass-through at exact threshold, got %v", got)
	}

	gate = NewGate(store, 3)
	got, err = gate.Process(context.Background(), "xx")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, ok := got.(*Envelope); !ok {
		t.Errorf("expected offload above threshold, got %T", got)
	}
}
