package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
)

// ZipReader extracts every supported file from an in-memory ZIP archive,
// skipping directories, resource forks, and unrecognized extensions the
// same way IsSupportedFile filters a single upload.
type ZipReader struct {
	Data []byte
}

// NewZipReader wraps raw ZIP bytes for extraction.
func NewZipReader(data []byte) *ZipReader {
	return &ZipReader{Data: data}
}

// Read unpacks the archive into memory.
func (r *ZipReader) Read(ctx context.Context) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(r.Data), int64(len(r.Data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	var files []File
	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.FileInfo().IsDir() || !IsSupportedFile(entry.Name) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open zip entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip entry %s: %w", entry.Name, err)
		}

		files = append(files, File{Name: entry.Name, Data: data})
	}

	return files, nil
}
