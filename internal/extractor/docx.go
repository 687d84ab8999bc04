package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX extracts text from a DOCX file. nguyenthenguyen/docx only
// opens from a path, so the in-memory bytes are spilled to a temp file for
// the duration of the read, same as the teacher's parseDOCX worked from a
// file already on disk.
func extractDOCX(data []byte) ([]RawSegment, error) {
	tmp, err := os.CreateTemp("", "extract-*.docx")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for DOCX: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write temp DOCX file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp DOCX file: %w", err)
	}

	doc, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX file: %w", err)
	}
	defer doc.Close()

	text := strings.TrimSpace(doc.Editable().GetContent())
	if text == "" {
		return nil, fmt.Errorf("no text extracted from DOCX")
	}
	return []RawSegment{{Content: text}}, nil
}
