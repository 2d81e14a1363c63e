// ResponseStore implementation with file-per-response persistence.
//
// Architecture:
// - In-memory: map of id -> metadata under RWMutex
// - Disk: one compact JSON file per response, named by its identifier
// - Optional: SQLite metadata index so identifiers survive a restart
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a stored response stays addressable. Eviction is
// opportunistic: it runs on every offload, never on a timer.
const DefaultTTL = time.Hour

// ResponseStore maps opaque identifiers to oversized JSON values persisted
// out-of-band. Constructed once per process; callers hold an explicit
// reference rather than a global singleton.
type ResponseStore struct {
	mu      sync.RWMutex
	entries map[string]ResponseMetadata

	dir    string
	ttl    time.Duration
	metaDB MetadataStorage
}

// NewResponseStore creates a memory-indexed store writing response files
// under dir. An empty dir falls back to a well-known temporary directory;
// a non-positive ttl falls back to DefaultTTL.
func NewResponseStore(dir string, ttl time.Duration) (*ResponseStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "theseus-storage")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &ResponseStore{
		entries: make(map[string]ResponseMetadata),
		dir:     dir,
		ttl:     ttl,
	}, nil
}

// NewPersistentResponseStore creates a store whose metadata index is loaded
// from and written through to metaDB, so identifiers remain resolvable
// across restarts for as long as their backing files exist.
//
// Ownership: the store does not close metaDB; the caller does.
func NewPersistentResponseStore(dir string, ttl time.Duration, metaDB MetadataStorage) (*ResponseStore, error) {
	store, err := NewResponseStore(dir, ttl)
	if err != nil {
		return nil, err
	}
	store.metaDB = metaDB
	if metaDB != nil {
		if err := store.loadFromMetadataStorage(); err != nil {
			return nil, fmt.Errorf("failed to load metadata index: %w", err)
		}
	}
	return store, nil
}

// Dir returns the directory holding the response files.
func (s *ResponseStore) Dir() string {
	return s.dir
}

// Offload persists value to disk and returns the abbreviated envelope that
// stands in for it. Entries older than the TTL are evicted on every call,
// which bounds growth of both the index and the on-disk footprint.
func (s *ResponseStore) Offload(ctx context.Context, value any) (*Envelope, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}
	return s.offload(ctx, value, raw)
}

// offload records an already-serialized value. raw must be the compact
// serialization of value; the recorded size is its byte length.
func (s *ResponseStore) offload(ctx context.Context, value any, raw []byte) (*Envelope, error) {
	s.evictExpired(ctx)

	id := uuid.NewString()
	meta := ResponseMetadata{
		ID:        id,
		Timestamp: time.Now(),
		SizeBytes: len(raw),
		Summary:   BuildSummary(value),
	}

	if err := os.WriteFile(s.filePath(id), raw, 0644); err != nil {
		return nil, fmt.Errorf("failed to persist response %s: %w", id, err)
	}

	s.mu.Lock()
	s.entries[id] = meta
	s.mu.Unlock()

	// Persist metadata outside the lock
	if s.metaDB != nil {
		if err := s.metaDB.StoreResponse(ctx, meta); err != nil {
			return nil, fmt.Errorf("failed to persist metadata for %s: %w", id, err)
		}
	}

	sizeMB := float64(len(raw)) / (1024 * 1024)
	return &Envelope{
		LargeResponse: true,
		ResponseID:    id,
		SizeBytes:     len(raw),
		SizeMB:        fmt.Sprintf("%.2f", sizeMB),
		Summary:       meta.Summary,
		Message: fmt.Sprintf(
			"Response is %d bytes (%.2f MB), exceeding the inline limit. It was stored with id %s; use navigate, query, filter, or export to retrieve slices of it.",
			len(raw), sizeMB, id),
		AvailableOperations: []string{"navigate", "query", "filter", "export"},
	}, nil
}

// Load returns the full stored value for id. A missing metadata entry and a
// missing backing file both surface as *NotFoundError; the latter sets
// CleanedUp since the file may have been swept by eviction.
func (s *ResponseStore) Load(ctx context.Context, id string) (any, error) {
	s.mu.RLock()
	_, ok := s.entries[id]
	var known []string
	if !ok {
		known = make([]string, 0, len(s.entries))
		for k := range s.entries {
			known = append(known, k)
		}
	}
	s.mu.RUnlock()

	if !ok {
		sort.Strings(known)
		return nil, &NotFoundError{ID: id, KnownIDs: known}
	}

	raw, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ID: id, CleanedUp: true}
		}
		return nil, fmt.Errorf("failed to read stored response %s: %w", id, err)
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("failed to decode stored response %s: %w", id, err)
	}
	return value, nil
}

// Metadata returns the metadata entry for id, or nil when unknown.
func (s *ResponseStore) Metadata(id string) *ResponseMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.entries[id]
	if !ok {
		return nil
	}
	return &meta
}

// List returns metadata for all live entries, newest first.
func (s *ResponseStore) List() []ResponseMetadata {
	s.mu.RLock()
	results := make([]ResponseMetadata, 0, len(s.entries))
	for _, meta := range s.entries {
		results = append(results, meta)
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return results
}

// Retire removes the metadata entry for id and attempts to delete its
// backing file. File deletion is best-effort: a failure is reported to
// stderr but never fails the call.
func (s *ResponseStore) Retire(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "storage: failed to remove response file %s: %v\n", id, err)
	}

	if s.metaDB != nil {
		if err := s.metaDB.DeleteResponse(ctx, id); err != nil {
			return fmt.Errorf("failed to delete metadata for %s: %w", id, err)
		}
	}
	return nil
}

// EvictExpired removes every entry whose timestamp predates the TTL cutoff
// and returns how many were evicted. Exposed for the gc command; offload
// calls it implicitly.
func (s *ResponseStore) EvictExpired(ctx context.Context) int {
	return s.evictExpired(ctx)
}

func (s *ResponseStore) evictExpired(ctx context.Context) int {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	for id, meta := range s.entries {
		if meta.Timestamp.Before(cutoff) {
			expired = append(expired, id)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	// File and index deletion happen outside the lock; both are
	// best-effort so a sweep can never fail an offload.
	for _, id := range expired {
		if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "storage: failed to remove expired response %s: %v\n", id, err)
		}
		if s.metaDB != nil {
			if err := s.metaDB.DeleteResponse(ctx, id); err != nil {
				fmt.Fprintf(os.Stderr, "storage: failed to delete expired metadata %s: %v\n", id, err)
			}
		}
	}
	return len(expired)
}

func (s *ResponseStore) filePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *ResponseStore) loadFromMetadataStorage() error {
	metas, err := s.metaDB.LoadAllResponses(context.Background())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, meta := range metas {
		s.entries[meta.ID] = meta
	}
	return nil
}
