// Package export writes navigated values to disk as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Options selects what to export and how.
type Options struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

// ToFile writes value to outputPath and returns a confirmation message.
// CSV applies only to array values; everything else, and the default
// format, is pretty-printed JSON.
func ToFile(value any, outputPath, format string) (string, error) {
	if format == FormatCSV {
		if arr, ok := value.([]any); ok {
			return writeCSV(arr, outputPath)
		}
	}
	return writeJSON(value, outputPath)
}

func writeJSON(value any, outputPath string) (string, error) {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize export: %w", err)
	}
	if err := os.WriteFile(outputPath, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return fmt.Sprintf("Exported JSON to %s", outputPath), nil
}

// writeCSV derives columns from the first element's key set, sorted for
// deterministic output. Cells are JSON-encoded values; a key absent from
// an element yields an empty cell.
func writeCSV(items []any, outputPath string) (string, error) {
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	headers := csvHeaders(items)
	if len(headers) > 0 {
		if err := w.Write(headers); err != nil {
			return "", fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, item := range items {
		obj, _ := item.(map[string]any)
		row := make([]string, len(headers))
		for i, h := range headers {
			val, ok := obj[h]
			if !ok {
				continue
			}
			cell, err := json.Marshal(val)
			if err != nil {
				return "", fmt.Errorf("failed to serialize CSV cell %q: %w", h, err)
			}
			row[i] = string(cell)
		}
		if len(row) == 0 {
			continue
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return fmt.Sprintf("Exported %d items as CSV to %s", len(items), outputPath), nil
}

func csvHeaders(items []any) []string {
	if len(items) == 0 {
		return nil
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return nil
	}
	headers := make([]string, 0, len(first))
	for k := range first {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	return headers
}
