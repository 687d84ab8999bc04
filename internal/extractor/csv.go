package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// extractCSV produces one bypass RawSegment per data row, formatted the
// same "Header: Value, ..." way as the teacher's Excel markdownification,
// so CSV and XLSX ingestion read identically downstream. CSV has no
// dedicated parsing library anywhere in the corpus (see DESIGN.md), so
// this stays on encoding/csv.
func extractCSV(data []byte) ([]RawSegment, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in CSV file")
	}

	headers := rows[0]
	var segments []RawSegment

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		var parts []string
		for colIdx, header := range headers {
			if colIdx >= len(row) {
				break
			}
			value := strings.TrimSpace(row[colIdx])
			if value == "" {
				continue
			}
			headerName := strings.TrimSpace(header)
			if headerName == "" {
				headerName = fmt.Sprintf("Column %d", colIdx+1)
			}
			parts = append(parts, fmt.Sprintf("%s: %s", headerName, value))
		}
		if len(parts) == 0 {
			continue
		}
		segments = append(segments, RawSegment{
			Content: strings.Join(parts, ", "),
			Bypass:  true,
			Metadata: map[string]any{
				"row": rowIdx + 1,
			},
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no content extracted from CSV file")
	}
	return segments, nil
}
