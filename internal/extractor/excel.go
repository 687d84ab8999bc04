package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel applies the teacher's "markdownification" strategy
// (header-qualified "Header: Value, ..." rows), adapted to read from an
// in-memory buffer instead of a file path. Like extractCSV, it produces one
// bypass RawSegment per data row (spec.md §4.4: ".csv"/".xlsx" -> one
// segment per row), tagged with its sheet and row number.
func extractExcel(data []byte) ([]RawSegment, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	var segments []RawSegment

	for _, sheetName := range sheetList {
		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			continue
		}

		headers := rows[0]
		if len(headers) == 0 {
			continue
		}

		for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
			row := rows[rowIdx]
			var rowParts []string
			for colIdx, header := range headers {
				if colIdx < len(row) && row[colIdx] != "" {
					value := strings.TrimSpace(row[colIdx])
					if value == "" {
						continue
					}
					headerName := strings.TrimSpace(header)
					if headerName == "" {
						headerName = fmt.Sprintf("Column %d", colIdx+1)
					}
					rowParts = append(rowParts, fmt.Sprintf("%s: %s", headerName, value))
				}
			}
			if len(rowParts) == 0 {
				continue
			}
			segments = append(segments, RawSegment{
				Content: strings.Join(rowParts, ", "),
				Bypass:  true,
				Metadata: map[string]any{
					"sheet": sheetName,
					"row":   rowIdx + 1,
				},
			})
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no content extracted from Excel file")
	}
	return segments, nil
}
