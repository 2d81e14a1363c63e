package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultSizeThreshold is the inline limit in bytes. Values whose compact
// serialization fits at or under it are returned unchanged.
const DefaultSizeThreshold = 100_000

// Gate decides whether a JSON value is small enough to return inline or
// must be offloaded to the store. It is the single entry point for every
// value handed back to a caller, including navigation and query results,
// so an oversized sub-value is wrapped in a fresh envelope instead of
// being returned whole.
type Gate struct {
	store     *ResponseStore
	threshold int
}

// NewGate creates a gate in front of store. A non-positive threshold falls
// back to DefaultSizeThreshold.
func NewGate(store *ResponseStore, threshold int) *Gate {
	if threshold <= 0 {
		threshold = DefaultSizeThreshold
	}
	return &Gate{store: store, threshold: threshold}
}

// Threshold returns the inline limit in bytes.
func (g *Gate) Threshold() int {
	return g.threshold
}

// Process serializes value and compares its byte length against the
// threshold. At or under: value is returned unchanged with no side
// effects. Over: the value is offloaded and its envelope returned.
func (g *Gate) Process(ctx context.Context, value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}
	if len(raw) <= g.threshold {
		return value, nil
	}
	return g.store.offload(ctx, value, raw)
}
