package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// pptxSlideXML models only the text-run elements a slide part's XML tree
// carries; DrawingML is otherwise ignored.
type pptxSlideXML struct {
	Runs []string `xml:"cSld>spTree>sp>txBody>p>r>t"`
}

// extractPPTX reads slide text from a .pptx, which is a ZIP archive of
// OOXML parts under ppt/slides/. No corpus library specializes in PPTX
// (see DESIGN.md), so this walks the archive with stdlib archive/zip and
// encoding/xml directly, the same way .pptx extraction is implemented in
// every other language's OOXML tooling: unzip, parse the slide XML, join
// the <a:t> runs.
func extractPPTX(data []byte) ([]RawSegment, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pptx archive: %w", err)
	}

	var slideFiles []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideFiles = append(slideFiles, f)
		}
	}
	sort.Slice(slideFiles, func(i, j int) bool { return slideFiles[i].Name < slideFiles[j].Name })

	var builder strings.Builder
	for idx, f := range slideFiles {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}

		var slide pptxSlideXML
		if err := xml.Unmarshal(raw, &slide); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}

		text := strings.TrimSpace(strings.Join(slide.Runs, " "))
		if text == "" {
			continue
		}
		if idx > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return nil, fmt.Errorf("no text extracted from PPTX")
	}
	return []RawSegment{{Content: result}}, nil
}
