// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package extractor generalizes the teacher's internal/parser
// extension-dispatch (which returned one flat string per file) into a
// segment-producing extractor: each file yields zero or more RawSegments
// carrying their own provenance, ready for the splitter.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RawSegment is one unit of text pulled from a source file, before
// chunking. For most formats a file produces a single RawSegment that the
// splitter further divides; CSV and JSON-selector extraction produce one
// RawSegment per record and bypass the splitter entirely.
type RawSegment struct {
	Content  string
	Metadata map[string]any
	// Bypass, when true, tells the orchestrator to skip the splitter and
	// treat Content as a already-final segment (set for CSV rows and
	// JSON-selector records).
	Bypass bool
}

// PreprocessRule names a post-extraction, pre-chunking text transform.
type PreprocessRule string

const (
	RuleReplaceSpaceAndTab PreprocessRule = "replace-space-n-tab"
	RuleDeleteURLAndEmail  PreprocessRule = "delete-url-and-email"
)

// Options configures extraction for a single file.
type Options struct {
	// JSONSelector is a jq expression applied to .json/.jsonl content; when
	// set, each projected record becomes one bypass RawSegment.
	JSONSelector string
	// PreprocessRules apply in order after extraction, before chunking.
	PreprocessRules []PreprocessRule
}

// Extract dispatches on the lowercased extension of filename the same way
// the teacher's parser.ParseFile does, returning one or more RawSegments.
func Extract(filename string, data []byte, opts Options) ([]RawSegment, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var segments []RawSegment
	var err error

	switch ext {
	case ".pdf":
		segments, err = extractPDF(data)
	case ".docx", ".doc":
		segments, err = extractDOCX(data)
	case ".txt", ".md":
		segments, err = extractText(data)
	case ".xlsx", ".xls":
		segments, err = extractExcel(data)
	case ".html", ".htm":
		segments, err = extractHTML(data)
	case ".eml":
		segments, err = extractEmail(data)
	case ".csv":
		segments, err = extractCSV(data)
	case ".json", ".jsonl":
		segments, err = extractJSON(data, opts.JSONSelector)
	case ".pptx":
		segments, err = extractPPTX(data)
	default:
		segments, err = extractText(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filename, err)
	}

	for i := range segments {
		segments[i].Content = applyPreprocessRules(segments[i].Content, opts.PreprocessRules)
	}

	return segments, nil
}
