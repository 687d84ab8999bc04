package extractor

import (
	"fmt"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
)

// extractPDF extracts text page by page using go-fitz (MuPDF), same
// library and page-separator convention as the teacher's parsePDF.
func extractPDF(data []byte) ([]RawSegment, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var builder strings.Builder
	numPages := doc.NumPage()

	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		if i < numPages-1 {
			builder.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return nil, fmt.Errorf("no text extracted from PDF")
	}
	return []RawSegment{{Content: text}}, nil
}
