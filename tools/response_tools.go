// Response tools - expose the stored-response operations to protocol callers.
//
// Each tool takes a response_id from a previous offload envelope and
// delegates to the respond.Service; navigate and query results come back
// pre-gated, so the output here is never oversized.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/theseus/export"
	"github.com/richinex/theseus/query"
	"github.com/richinex/theseus/respond"
)

// NavigateResponseTool resolves a path expression within a stored response.
type NavigateResponseTool struct {
	BaseTool
	service *respond.Service
}

// NewNavigateResponseTool creates a tool for navigating stored responses.
func NewNavigateResponseTool(service *respond.Service) *NavigateResponseTool {
	return &NavigateResponseTool{service: service}
}

func (t *NavigateResponseTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "navigate_response",
		Description: "Navigate within a stored large response using a dot/bracket path (e.g. 'data.items[0].name'). An empty path returns the root. Oversized results are stored again and come back as a new envelope.",
		Parameters: []ToolParameter{
			{Name: "response_id", ParamType: "string", Description: "Identifier from a large-response envelope", Required: true},
			{Name: "path", ParamType: "string", Description: "Path expression; empty for the root", Required: false},
		},
	}
}

type navigateArgs struct {
	ResponseID string `json:"response_id"`
	Path       string `json:"path"`
}

func (t *NavigateResponseTool) Validate(args json.RawMessage) error {
	var a navigateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.ResponseID) == "" {
		return fmt.Errorf("response_id cannot be empty")
	}
	return nil
}

func (t *NavigateResponseTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a navigateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if strings.TrimSpace(a.ResponseID) == "" {
		return FailureResultf("response_id cannot be empty"), nil
	}

	value, err := t.service.Navigate(ctx, a.ResponseID, a.Path)
	if err != nil {
		return FailureResult(err), nil
	}
	return encodeResult(value)
}

// QueryResponseTool filters and paginates an array within a stored response.
type QueryResponseTool struct {
	BaseTool
	service *respond.Service
}

// NewQueryResponseTool creates a tool for querying stored responses.
func NewQueryResponseTool(service *respond.Service) *QueryResponseTool {
	return &QueryResponseTool{service: service}
}

func (t *QueryResponseTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "query_response",
		Description: "Query an array inside a stored large response: filter by equality or date range ($gte/$lte/$gt/$lt), then paginate with offset/limit. Non-array values are returned as-is with their type.",
		Parameters: []ToolParameter{
			{Name: "response_id", ParamType: "string", Description: "Identifier from a large-response envelope", Required: true},
			{Name: "path", ParamType: "string", Description: "Path to the array; empty for the root", Required: false},
			{Name: "filter", ParamType: "object", Description: "Dotted key -> value (equality) or {\"$gte\"/\"$lte\"/\"$gt\"/\"$lt\": date} per key, all ANDed", Required: false},
			{Name: "limit", ParamType: "integer", Description: "Maximum items per page (default: 20)", Required: false},
			{Name: "offset", ParamType: "integer", Description: "Items to skip (default: 0)", Required: false},
		},
	}
}

type queryArgs struct {
	ResponseID string         `json:"response_id"`
	Path       string         `json:"path"`
	Filter     map[string]any `json:"filter"`
	Limit      *int           `json:"limit"`
	Offset     *int           `json:"offset"`
}

func (t *QueryResponseTool) Validate(args json.RawMessage) error {
	var a queryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.ResponseID) == "" {
		return fmt.Errorf("response_id cannot be empty")
	}
	if a.Limit != nil && *a.Limit <= 0 {
		return fmt.Errorf("limit must be > 0")
	}
	if a.Offset != nil && *a.Offset < 0 {
		return fmt.Errorf("offset must be >= 0")
	}
	return nil
}

func (t *QueryResponseTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a queryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if err := t.Validate(args); err != nil {
		return FailureResult(err), nil
	}

	spec := query.Spec{Path: a.Path, Filter: a.Filter}
	if a.Limit != nil {
		spec.Limit = *a.Limit
	}
	if a.Offset != nil {
		spec.Offset = *a.Offset
	}

	result, err := t.service.Query(ctx, a.ResponseID, spec)
	if err != nil {
		return FailureResult(err), nil
	}
	return encodeResult(result)
}

// ExportResponseTool writes a navigated value to a file as JSON or CSV.
type ExportResponseTool struct {
	BaseTool
	service      *respond.Service
	allowedPaths []string
}

// NewExportResponseTool creates a tool for exporting stored responses.
// When allowedPaths is non-empty, exports outside those roots are refused.
func NewExportResponseTool(service *respond.Service, allowedPaths []string) *ExportResponseTool {
	return &ExportResponseTool{service: service, allowedPaths: allowedPaths}
}

func (t *ExportResponseTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "export_response",
		Description: "Export a stored large response (or a navigated part of it) to a file. Arrays can be exported as CSV; everything else is pretty-printed JSON.",
		Parameters: []ToolParameter{
			{Name: "response_id", ParamType: "string", Description: "Identifier from a large-response envelope", Required: true},
			{Name: "output_path", ParamType: "string", Description: "Destination file path", Required: true},
			{Name: "path", ParamType: "string", Description: "Path to export; empty for the root", Required: false},
			{Name: "format", ParamType: "string", Description: "'json' (default) or 'csv'", Required: false},
		},
	}
}

type exportArgs struct {
	ResponseID string `json:"response_id"`
	OutputPath string `json:"output_path"`
	Path       string `json:"path"`
	Format     string `json:"format"`
}

func (t *ExportResponseTool) Validate(args json.RawMessage) error {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.ResponseID) == "" {
		return fmt.Errorf("response_id cannot be empty")
	}
	if strings.TrimSpace(a.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty")
	}
	switch a.Format {
	case "", export.FormatJSON, export.FormatCSV:
	default:
		return fmt.Errorf("unsupported format %q: use %q or %q", a.Format, export.FormatJSON, export.FormatCSV)
	}
	if !pathAllowedForWrite(a.OutputPath, t.allowedPaths) {
		return fmt.Errorf("output_path %q is outside the allowed export paths", a.OutputPath)
	}
	return nil
}

func (t *ExportResponseTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if err := t.Validate(args); err != nil {
		return FailureResult(err), nil
	}

	message, err := t.service.Export(ctx, a.ResponseID, a.OutputPath, export.Options{
		Path:   a.Path,
		Format: a.Format,
	})
	if err != nil {
		return FailureResult(err), nil
	}
	return SuccessResult(message), nil
}

func encodeResult(value any) (ToolResult, error) {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return FailureResult(fmt.Errorf("failed to encode result: %w", err)), nil
	}
	return SuccessResult(string(raw)), nil
}
