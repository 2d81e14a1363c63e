package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"
)

// largePayload builds an array whose serialization exceeds the default
// size threshold.
func largePayload() []any {
	items := make([]any, 0, 3000)
	for i := 0; i < 3000; i++ {
		items = append(items, map[string]any{
			"id":     float64(i),
			"name":   fmt.Sprintf("item-%04d", i),
			"status": "open",
		})
	}
	return items
}

func newTestStore(t *testing.T) *ResponseStore {
	t.Helper()
	store, err := NewResponseStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewResponseStore failed: %v", err)
	}
	return store
}

func TestOffloadAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	value := largePayload()

	envelope, err := store.Offload(ctx, value)
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	if !envelope.LargeResponse {
		t.Error("expected large_response marker")
	}
	if envelope.ResponseID == "" {
		t.Fatal("expected non-empty response id")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if envelope.SizeBytes != len(raw) {
		t.Errorf("expected size %d, got %d", len(raw), envelope.SizeBytes)
	}
	if envelope.Summary.Structure != StructureArray {
		t.Errorf("expected array summary, got %q", envelope.Summary.Structure)
	}
	if len(envelope.AvailableOperations) != 4 {
		t.Errorf("expected 4 available operations, got %v", envelope.AvailableOperations)
	}

	// The envelope itself must be small
	envRaw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	if len(envRaw) > DefaultSizeThreshold {
		t.Errorf("envelope serialization is %d bytes, expected small", len(envRaw))
	}

	loaded, err := store.Load(ctx, envelope.ResponseID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var want any
	if err := json.Unmarshal(raw, &want); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, want) {
		t.Error("loaded value is not deep-equal to the original")
	}
}

func TestOffloadGeneratesUniqueIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		envelope, err := store.Offload(ctx, largePayload())
		if err != nil {
			t.Fatalf("Offload failed: %v", err)
		}
		if seen[envelope.ResponseID] {
			t.Fatalf("duplicate id %s", envelope.ResponseID)
		}
		seen[envelope.ResponseID] = true
	}
}

func TestLoadUnknownID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	envelope, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	_, err = store.Load(ctx, "no-such-id")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.CleanedUp {
		t.Error("expected CleanedUp to be false for unknown id")
	}
	if len(notFound.KnownIDs) != 1 || notFound.KnownIDs[0] != envelope.ResponseID {
		t.Errorf("expected known ids to list %s, got %v", envelope.ResponseID, notFound.KnownIDs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	envelope, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	// Simulate the backing file being swept while metadata survives
	if err := os.Remove(store.filePath(envelope.ResponseID)); err != nil {
		t.Fatalf("failed to remove backing file: %v", err)
	}

	_, err = store.Load(ctx, envelope.ResponseID)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !notFound.CleanedUp {
		t.Error("expected CleanedUp for missing backing file")
	}
}

func TestRetire(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	envelope, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	if err := store.Retire(ctx, envelope.ResponseID); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}

	if meta := store.Metadata(envelope.ResponseID); meta != nil {
		t.Error("expected metadata to be removed")
	}
	if _, err := os.Stat(store.filePath(envelope.ResponseID)); !os.IsNotExist(err) {
		t.Error("expected backing file to be removed")
	}
}

func TestEvictionOnOffload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	envelope, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	// Backdate the entry past the TTL cutoff
	store.mu.Lock()
	meta := store.entries[envelope.ResponseID]
	meta.Timestamp = time.Now().Add(-2 * time.Hour)
	store.entries[envelope.ResponseID] = meta
	store.mu.Unlock()

	if _, err := store.Offload(ctx, largePayload()); err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	if m := store.Metadata(envelope.ResponseID); m != nil {
		t.Error("expected expired entry to be evicted")
	}
	if _, err := os.Stat(store.filePath(envelope.ResponseID)); !os.IsNotExist(err) {
		t.Error("expected expired backing file to be removed")
	}
}

func TestEvictionSparesFreshEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	envelope, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	if evicted := store.EvictExpired(ctx); evicted != 0 {
		t.Errorf("expected no evictions, got %d", evicted)
	}
	if m := store.Metadata(envelope.ResponseID); m == nil {
		t.Error("expected fresh entry to survive the sweep")
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}
	second, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	// Force distinct timestamps; offloads within the same nanosecond are
	// otherwise unordered.
	store.mu.Lock()
	meta := store.entries[first.ResponseID]
	meta.Timestamp = meta.Timestamp.Add(-time.Minute)
	store.entries[first.ResponseID] = meta
	store.mu.Unlock()

	entries := store.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != second.ResponseID {
		t.Errorf("expected newest entry first, got %s", entries[0].ID)
	}
}

func TestPersistentStoreReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	metaDB, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create metadata index: %v", err)
	}
	defer metaDB.Close()

	store, err := NewPersistentResponseStore(dir, time.Hour, metaDB)
	if err != nil {
		t.Fatalf("NewPersistentResponseStore failed: %v", err)
	}

	envelope, err := store.Offload(ctx, largePayload())
	if err != nil {
		t.Fatalf("Offload failed: %v", err)
	}

	// A second store over the same index and directory resolves the id
	reloaded, err := NewPersistentResponseStore(dir, time.Hour, metaDB)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := reloaded.Load(ctx, envelope.ResponseID); err != nil {
		t.Fatalf("Load after reload failed: %v", err)
	}
}
