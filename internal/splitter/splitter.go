// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package splitter packs extracted text into overlapping chunks, the same
// shape as the teacher's internal/processor.Chunker, generalized from a
// fixed byte-offset slide into a configurable regex-separator split
// followed by a size/overlap pack.
package splitter

import (
	"regexp"
	"strings"
)

// Options configures chunk packing. Zero values resolve to spec.md's
// defaults of 500/50/"\n\n" via WithDefaults.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// WithDefaults fills unset fields with spec.md's defaults and unescapes
// literal "\n" sequences in Separator, since config values arrive as raw
// strings (a YAML/JSON "\\n\\n" must become an actual double newline
// before it's used as a regex split pattern).
func (o Options) WithDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 500
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = 50
	}
	if o.Separator == "" {
		o.Separator = "\n\n"
	}
	o.Separator = strings.ReplaceAll(o.Separator, `\n`, "\n")
	o.Separator = strings.ReplaceAll(o.Separator, `\t`, "\t")
	return o
}

// Split breaks text into overlapping chunks no larger than ChunkSize,
// first dividing on the Separator regex, then greedily packing the
// resulting units and carrying the trailing ChunkOverlap characters of one
// chunk into the start of the next, when that still fits within ChunkSize,
// so no unit falls at a hard seam.
func Split(text string, opts Options) ([]string, error) {
	opts = opts.WithDefaults()

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sepRe, err := regexp.Compile(opts.Separator)
	if err != nil {
		return nil, err
	}

	units := sepRe.Split(text, -1)

	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(unit) > opts.ChunkSize {
			prev := current.String()
			flush()
			if tail := overlapTail(prev, opts.ChunkOverlap); tail != "" && len(tail)+2+len(unit) <= opts.ChunkSize {
				current.WriteString(tail)
			}
		}

		// A single oversized unit is packed alone and allowed to exceed
		// ChunkSize rather than silently truncated.
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(unit)
	}
	flush()

	return chunks, nil
}

// overlapTail returns the trailing n characters of s, trimmed, for
// seeding the next chunk with lookback context.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return ""
	}
	return strings.TrimSpace(s[len(s)-n:])
}
