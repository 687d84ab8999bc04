// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package source resolves an ingestion request's origin (a direct URL, an
// object-store prefix, or a ZIP archive) into a stream of readable files
// for the extractor, in the teacher's internal/parser extension-dispatch
// style generalized to multiple origins instead of a single local path.
package source

import (
	"context"
	"path/filepath"
	"strings"
)

// File is one file pulled from a source, read fully into memory (the
// teacher's ParseFile instead works from a path it can re-read). No size
// limit is applied to it.
type File struct {
	Name string
	Data []byte
}

// Reader yields every file a source resolves to.
type Reader interface {
	Read(ctx context.Context) ([]File, error)
}

// SupportedExtensions lists the extractor-recognized suffixes a reader
// should keep; everything else (resource forks, directories, unknown
// types) is filtered out at the source boundary rather than surfacing as
// a per-file extraction error.
var SupportedExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".txt": true, ".md": true,
	".xlsx": true, ".xls": true, ".csv": true, ".html": true, ".htm": true,
	".eml": true, ".json": true, ".jsonl": true, ".pptx": true,
}

// IsTemporaryFile reports whether base names a temp/lock/resource-fork
// file that should never reach the extractor, mirroring the teacher's
// parser.IsTemporaryFile.
func IsTemporaryFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, "._") {
		return true
	}
	if strings.HasSuffix(base, ".tmp") {
		return true
	}
	return false
}

// IsSupportedFile reports whether name has an extractor-recognized
// extension and is not a temporary file.
func IsSupportedFile(name string) bool {
	if IsTemporaryFile(name) {
		return false
	}
	if strings.Contains(name, "__MACOSX/") {
		return false
	}
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}
