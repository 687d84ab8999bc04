package extractor

import "fmt"

// extractText passes plain text/markdown content through unchanged,
// mirroring the teacher's parseText.
func extractText(data []byte) ([]RawSegment, error) {
	text := string(data)
	if text == "" {
		return nil, fmt.Errorf("no content in text file")
	}
	return []RawSegment{{Content: text}}, nil
}
