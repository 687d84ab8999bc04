package extractor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// extractJSON projects each top-level record of a .json array or .jsonl
// stream through selector (a jq expression) and emits one bypass
// RawSegment per projected value. An empty selector falls back to "."
// (pass the whole record through), matching spec.md's default when no
// json_selector is configured.
func extractJSON(data []byte, selector string) ([]RawSegment, error) {
	if selector == "" {
		selector = "."
	}

	query, err := gojq.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid json_selector %q: %w", selector, err)
	}

	records, err := decodeJSONRecords(data)
	if err != nil {
		return nil, err
	}

	var segments []RawSegment
	for _, record := range records {
		iter := query.Run(record)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return nil, fmt.Errorf("json_selector evaluation failed: %w", err)
			}
			content, err := stringifyJSONValue(v)
			if err != nil {
				return nil, err
			}
			if content == "" {
				continue
			}
			segments = append(segments, RawSegment{Content: content, Bypass: true})
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no content extracted from JSON/JSONL file")
	}
	return segments, nil
}

// decodeJSONRecords accepts both a single JSON array/object and a JSONL
// stream of one JSON value per line.
func decodeJSONRecords(data []byte) ([]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON input")
	}

	if trimmed[0] == '[' {
		var arr []any
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("failed to parse JSON array: %w", err)
		}
		return arr, nil
	}

	var records []any
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record any
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSONL line: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan JSONL input: %w", err)
	}
	return records, nil
}

func stringifyJSONValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to re-marshal selected json value: %w", err)
	}
	return string(b), nil
}
