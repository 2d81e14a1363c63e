// Package storage: metadata index persistence.
//
// MetadataStorage persists the identifier -> metadata index so a restarted
// process can still resolve identifiers whose backing files survive on
// disk. It never stores response content; the files remain the only copy.
package storage

import (
	"context"
)

// MetadataStorage persists response metadata entries.
type MetadataStorage interface {
	// StoreResponse records a metadata entry, replacing any existing
	// entry with the same id.
	StoreResponse(ctx context.Context, meta ResponseMetadata) error

	// LoadAllResponses loads every recorded entry.
	LoadAllResponses(ctx context.Context) ([]ResponseMetadata, error)

	// DeleteResponse removes the entry for id. Deleting an unknown id
	// is not an error.
	DeleteResponse(ctx context.Context, id string) error
}
