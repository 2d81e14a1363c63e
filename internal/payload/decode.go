// Package payload decodes upstream response text into JSON values.
//
// Upstream tool and API outputs do not always arrive as bare JSON: the
// document may be wrapped in markdown code blocks (```json ... ```) or
// surrounded by commentary. This package extracts the JSON portion before
// decoding.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode extracts and parses the JSON document in text.
//
// It tries, in order:
// 1. The full text as JSON (after stripping markdown code blocks)
// 2. The span from the first '{' to the last '}'
// 3. The span from the first '[' to the last ']'
//
// Limitations: spans use simple bracket matching, not full JSON parsing,
// so extraction may fail when brackets appear inside strings.
func Decode(text string) (any, error) {
	raw, err := extract(text)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return value, nil
}

// Extract returns the raw JSON portion of text without decoding it.
func Extract(text string) (string, error) {
	return extract(text)
}

func extract(text string) (string, error) {
	text = stripMarkdownCodeBlocks(text)

	var test any
	if err := json.Unmarshal([]byte(text), &test); err == nil {
		return text, nil
	}

	if raw, ok := span(text, '{', '}'); ok {
		return raw, nil
	}
	if raw, ok := span(text, '[', ']'); ok {
		return raw, nil
	}

	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON found in payload: %q", preview)
}

// span extracts the text between the first open and the last close bracket
// and reports whether that slice is valid JSON.
func span(text string, open, closing byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return "", false
	}
	end := strings.LastIndexByte(text, closing)
	if end <= start {
		return "", false
	}
	raw := text[start : end+1]
	var test any
	if err := json.Unmarshal([]byte(raw), &test); err != nil {
		return "", false
	}
	return raw, true
}

// stripMarkdownCodeBlocks removes code block markers from the text.
// Handles patterns like ```json\n...\n``` or ```\n...\n```
func stripMarkdownCodeBlocks(text string) string {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimSpace(trimmed)
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}
