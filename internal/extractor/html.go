package extractor

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// extractHTML strips script/style/noscript tags and returns the remaining
// visible text, same as the teacher's parseHTML.
func extractHTML(data []byte) ([]RawSegment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Text()
	if text == "" {
		return nil, fmt.Errorf("no text extracted from HTML")
	}
	return []RawSegment{{Content: text}}, nil
}
