// Response types for out-of-band storage of oversized API payloads.
//
// Information Hiding:
// - File layout and identifier generation hidden behind ResponseStore
// - Summary construction encapsulated in BuildSummary
// - Metadata persistence hidden behind MetadataStorage
package storage

import (
	"fmt"
	"strings"
	"time"
)

// ResponseMetadata describes a stored response without its content.
// This is what the caller receives instead of the full payload.
type ResponseMetadata struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int       `json:"size_bytes"` // Byte length of the serialized value at creation time
	Summary   Summary   `json:"summary"`
}

// Structure tags used by Summary.
const (
	StructureArray  = "array"
	StructureObject = "object"
)

// Summary is a compact structural preview of a stored value. Exactly one
// shape is populated, keyed by Structure: "array", "object", or empty for
// scalars and null. It exists to give a human enough context to decide
// what to navigate to next; queries never depend on it.
type Summary struct {
	Structure string `json:"structure,omitempty"`

	// Array shape
	TotalItems int      `json:"totalItems,omitempty"`
	FirstItems []any    `json:"firstItems,omitempty"`
	ItemKeys   []string `json:"itemKeys,omitempty"` // Keys of the first element when it is an object

	// Object shape
	Keys            []string `json:"keys,omitempty"`
	HasDataArray    bool     `json:"hasDataArray,omitempty"`
	DataArrayLength int      `json:"dataArrayLength,omitempty"`
}

// Envelope is the abbreviated object returned in place of an oversized
// value. Its own serialization is constructed to be small.
type Envelope struct {
	LargeResponse       bool     `json:"large_response"`
	ResponseID          string   `json:"response_id"`
	SizeBytes           int      `json:"size_bytes"`
	SizeMB              string   `json:"size_mb"`
	Summary             Summary  `json:"summary"`
	Message             string   `json:"message"`
	AvailableOperations []string `json:"available_operations"`
}

// NotFoundError reports a response identifier that cannot be resolved.
// CleanedUp distinguishes "metadata exists but the backing file is gone"
// (expired or swept) from an identifier the store has never seen.
type NotFoundError struct {
	ID        string
	KnownIDs  []string
	CleanedUp bool
}

func (e *NotFoundError) Error() string {
	if e.CleanedUp {
		return fmt.Sprintf("response %s not found: backing file is missing (may have been cleaned up)", e.ID)
	}
	if len(e.KnownIDs) == 0 {
		return fmt.Sprintf("response %s not found: no stored responses", e.ID)
	}
	return fmt.Sprintf("response %s not found: known ids: %s", e.ID, strings.Join(e.KnownIDs, ", "))
}
