// Package respond coordinates the response store, path navigator, query
// engine, and exporter behind the three caller-facing operations.
//
// Control flow: every upstream value enters through Process (the size
// gate). Navigate and Query address the store by identifier, resolve a
// path, and gate their own output, so an oversized sub-value comes back as
// a fresh envelope instead of the raw sub-structure. Export writes to disk
// and returns only a confirmation string, which is never gated.
package respond

import (
	"context"
	"fmt"

	"github.com/richinex/theseus/export"
	"github.com/richinex/theseus/jsonpath"
	"github.com/richinex/theseus/query"
	"github.com/richinex/theseus/storage"
)

// Service owns the store and gate for one process.
type Service struct {
	store *storage.ResponseStore
	gate  *storage.Gate
}

// NewService composes a store and its gate into a service.
func NewService(store *storage.ResponseStore, gate *storage.Gate) *Service {
	return &Service{store: store, gate: gate}
}

// Store exposes the underlying store for maintenance operations.
func (s *Service) Store() *storage.ResponseStore {
	return s.store
}

// Process passes an upstream result through the size gate: small values
// come back unchanged, oversized values are offloaded and replaced by
// their envelope.
func (s *Service) Process(ctx context.Context, value any) (any, error) {
	return s.gate.Process(ctx, value)
}

// Navigate loads the stored response and resolves path against it. The
// result is gated, so navigating to a still-large sub-structure returns a
// new envelope.
func (s *Service) Navigate(ctx context.Context, id, path string) (any, error) {
	value, err := s.resolve(ctx, id, path)
	if err != nil {
		return nil, err
	}
	return s.gate.Process(ctx, value)
}

// Query navigates to spec.Path, applies the filter and pagination, and
// gates the result object. Navigation and filtering failures are
// re-raised as a single query failure naming the cause.
func (s *Service) Query(ctx context.Context, id string, spec query.Spec) (any, error) {
	value, err := s.resolve(ctx, id, spec.Path)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	result, err := query.Apply(value, spec)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return s.gate.Process(ctx, result)
}

// Export navigates to opts.Path and writes the value to outputPath in the
// requested format, returning a confirmation message.
func (s *Service) Export(ctx context.Context, id, outputPath string, opts export.Options) (string, error) {
	value, err := s.resolve(ctx, id, opts.Path)
	if err != nil {
		return "", err
	}
	return export.ToFile(value, outputPath, opts.Format)
}

func (s *Service) resolve(ctx context.Context, id, path string) (any, error) {
	root, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	segments, err := jsonpath.Parse(path)
	if err != nil {
		return nil, err
	}
	return jsonpath.Resolve(root, segments)
}
